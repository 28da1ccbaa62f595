package query

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuilderBuild(t *testing.T) {
	Convey("测试 SELECT 语句构建", t, func() {
		Convey("只有表名", func() {
			So(New().Table("user").Build(), ShouldEqual, "SELECT * FROM user")
		})

		Convey("渲染顺序与调用顺序无关", func() {
			sql := New().
				Limit(10).
				OrderBy("user.id", Desc).
				GroupBy("user.id").
				Wheres("user.age > 20").
				LeftJoin("item", On{Left: "id", Right: "user_id"}).
				Selects("user.id", "item.name").
				Table("user").
				Build()
			So(sql, ShouldEqual, "SELECT user.id, item.name FROM user LEFT JOIN item ON user.id = item.user_id WHERE user.age > 20 GROUP BY user.id ORDER BY user.id DESC LIMIT 10")
		})

		Convey("多个条件用 AND 连接", func() {
			sql, args := From("user").Filter("age > ?", 20).Filter("name = ?", "bob").Wheres("deleted = 0").BuildWithArgs()
			So(sql, ShouldEqual, "SELECT * FROM user WHERE age > ? AND name = ? AND deleted = 0")
			So(args, ShouldResemble, []any{20, "bob"})
		})

		Convey("多个 join 保持添加顺序", func() {
			sql := From("a").
				InnerJoin("b", On{Left: "id", Right: "a_id"}).
				RightJoin("c", On{Left: "id", Right: "a_id"}).
				Build()
			So(sql, ShouldEqual, "SELECT * FROM a INNER JOIN b ON a.id = b.a_id RIGHT JOIN c ON a.id = c.a_id")
		})

		Convey("多列排序", func() {
			sql := From("a").OrderBy("x", Asc).OrderBy("y", Desc).Build()
			So(sql, ShouldEqual, "SELECT * FROM a ORDER BY x ASC, y DESC")
		})

		Convey("OFFSET 跟在 LIMIT 之后", func() {
			So(From("a").Offset(5).Limit(10).Build(), ShouldEqual, "SELECT * FROM a LIMIT 10 OFFSET 5")
			So(From("a").Offset(5).Build(), ShouldEqual, "SELECT * FROM a")
		})

		Convey("未设置表名 panic", func() {
			So(func() { New().Selects("a").Build() }, ShouldPanic)
		})
	})
}

func TestBuilderImmutable(t *testing.T) {
	Convey("测试构建器不可变", t, func() {
		base := From("user").Selects("a")
		q1 := base.AppendSelects("b").Filter("x = ?", 1)
		q2 := base.AppendSelects("c")

		So(base.Build(), ShouldEqual, "SELECT a FROM user")
		So(q1.Build(), ShouldEqual, "SELECT a, b FROM user WHERE x = ?")
		So(q2.Build(), ShouldEqual, "SELECT a, c FROM user")
		So(base.Args(), ShouldBeEmpty)

		Convey("Selects 替换而不是追加", func() {
			So(q1.Selects("z").Build(), ShouldEqual, "SELECT z FROM user WHERE x = ?")
		})
	})
}

func TestBuilderWhere(t *testing.T) {
	Convey("测试条件节点", t, func() {
		sql, args := From("user").
			Where(&TermQuery{Field: "status", Value: "active"}).
			Where(&RangeQuery{Field: "age", Gte: 18, Lt: 60}).
			BuildWithArgs()
		So(sql, ShouldEqual, "SELECT * FROM user WHERE status = ? AND age >= ? AND age < ?")
		So(args, ShouldResemble, []any{"active", 18, 60})

		Convey("渲染错误", func() {
			b := From("user").Where(&RawQuery{})
			So(b.Err(), ShouldNotBeNil)
		})
	})
}

func TestOrder(t *testing.T) {
	Convey("测试排序方向", t, func() {
		So(Asc.String(), ShouldEqual, "ASC")
		So(Desc.String(), ShouldEqual, "DESC")
	})
}
