package query

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLeafQueryToSQL(t *testing.T) {
	Convey("测试叶子条件 ToSQL", t, func() {
		Convey("TermQuery", func() {
			sql, args, err := (&TermQuery{Field: "status", Value: "active"}).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "status = ?")
			So(args, ShouldResemble, []any{"active"})

			sql, args, _ = (&TermQuery{Field: "status"}).ToSQL()
			So(sql, ShouldEqual, "status IS NULL")
			So(args, ShouldBeEmpty)
		})

		Convey("InQuery", func() {
			sql, args, err := (&InQuery{Field: "id", Values: []any{1, 2, 3}}).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "id IN (?, ?, ?)")
			So(args, ShouldResemble, []any{1, 2, 3})

			sql, _, _ = (&InQuery{Field: "id"}).ToSQL()
			So(sql, ShouldEqual, "1=0")
		})

		Convey("RangeQuery", func() {
			sql, args, err := (&RangeQuery{Field: "age", Gt: 1, Lte: 9}).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "age > ? AND age <= ?")
			So(args, ShouldResemble, []any{1, 9})

			sql, _, _ = (&RangeQuery{Field: "age"}).ToSQL()
			So(sql, ShouldEqual, "1=1")
		})

		Convey("ExistsQuery", func() {
			sql, args, err := (&ExistsQuery{Field: "email"}).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "email IS NOT NULL")
			So(args, ShouldBeEmpty)
		})

		Convey("LIKE 系列", func() {
			_, args, _ := (&PrefixQuery{Field: "name", Value: "jo"}).ToSQL()
			So(args, ShouldResemble, []any{"jo%"})

			sql, args, _ := (&WildcardQuery{Field: "name", Value: "j*n?"}).ToSQL()
			So(sql, ShouldEqual, "name LIKE ?")
			So(args, ShouldResemble, []any{"j%n_"})

			_, args, _ = (&MatchQuery{Field: "title", Value: "go"}).ToSQL()
			So(args, ShouldResemble, []any{"%go%"})
		})
	})
}

func TestBoolQueryToSQL(t *testing.T) {
	Convey("测试 BoolQuery ToSQL 方法", t, func() {
		Convey("空的 BoolQuery", func() {
			sql, args, err := (&BoolQuery{}).ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "1=1")
			So(args, ShouldBeEmpty)
		})

		Convey("Should 条件用 OR 连接", func() {
			q := &BoolQuery{
				Should: []Query{
					&TermQuery{Field: "category", Value: "tech"},
					&TermQuery{Field: "category", Value: "science"},
				},
			}
			sql, args, err := q.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "(category = ? OR category = ?)")
			So(args, ShouldResemble, []any{"tech", "science"})
		})

		Convey("MinShouldMatch", func() {
			minMatch := 2
			q := &BoolQuery{
				Should: []Query{
					&TermQuery{Field: "tag1", Value: "v1"},
					&TermQuery{Field: "tag2", Value: "v2"},
					&TermQuery{Field: "tag3", Value: "v3"},
				},
				MinShouldMatch: &minMatch,
			}
			sql, args, err := q.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "(CASE WHEN (tag1 = ?) THEN 1 ELSE 0 END + CASE WHEN (tag2 = ?) THEN 1 ELSE 0 END + CASE WHEN (tag3 = ?) THEN 1 ELSE 0 END) >= 2")
			So(args, ShouldHaveLength, 3)
		})

		Convey("复合条件的参数顺序与占位符一致", func() {
			q := &BoolQuery{
				Must:    []Query{&TermQuery{Field: "status", Value: "active"}},
				Filter:  []Query{&RangeQuery{Field: "age", Gte: 18}},
				Should:  []Query{&TermQuery{Field: "vip", Value: true}},
				MustNot: []Query{&TermQuery{Field: "deleted", Value: true}},
			}
			sql, args, err := q.ToSQL()
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "(status = ?) AND (age >= ?) AND (vip = ?) AND (NOT (deleted = ?))")
			So(args, ShouldResemble, []any{"active", 18, true, true})
		})

		Convey("子节点错误向上传递", func() {
			_, _, err := (&BoolQuery{Must: []Query{&RawQuery{}}}).ToSQL()
			So(err, ShouldNotBeNil)
		})
	})
}
