package derive

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/schema"
	"github.com/hatlonely/rdbx/value"
)

type Ex1 struct {
	Field1 string `rdb:"field1,size=50,unique,not_null"`
	Aaaa   int32  `rdb:"aaaa"`
	PK     int32  `rdb:"pk,pk"`
	Cache  string `rdb:"-"`
}

func (Ex1) TableName() string {
	return "ex_1"
}

type Ex2 struct {
	Field1 string `rdb:"field1,size=50,unique,not_null"`
	Aaaa   int32  `rdb:"aaaa"`
	PK     int32  `rdb:"pk,pk"`
	PK2    int32  `rdb:"pk2,pk"`
}

type Nullable struct {
	ID   int64   `rdb:"id,pk"`
	Name *string `rdb:"name,type=varchar,size=20"`
}

type Audit struct {
	CreatedBy string `rdb:"created_by,index=idx_audit"`
}

type WithEmbedded struct {
	Audit
	ID   int64  `rdb:"id,pk"`
	Kind string `rdb:"kind,index=idx_audit"`
}

type NoPK struct {
	A int32 `rdb:"a"`
}

type BadVarchar struct {
	ID   int64  `rdb:"id,pk"`
	Name string `rdb:"name,type=varchar"`
}

type BadTag struct {
	ID int64 `rdb:"id,pk,autoincrement"`
}

type UnderscoreID struct {
	ID   int64 `rdb:"_id,pk"`
	Body string
}

type BadType struct {
	ID  int64          `rdb:"id,pk"`
	Tag map[string]int `rdb:"tag"`
}

func TestParseTag(t *testing.T) {
	Convey("测试标签解析", t, func() {
		tag, err := ParseTag("field1,size=50,unique,not_null,pk")
		So(err, ShouldBeNil)
		So(tag.Column, ShouldEqual, "field1")
		So(*tag.Size, ShouldEqual, 50)
		So(*tag.Unique, ShouldBeTrue)
		So(*tag.NotNull, ShouldBeTrue)
		So(tag.PrimaryKey, ShouldBeTrue)

		Convey("未设置的属性保持为空", func() {
			tag, err := ParseTag("aaaa")
			So(err, ShouldBeNil)
			So(tag.Size, ShouldBeNil)
			So(tag.Unique, ShouldBeNil)
			So(tag.NotNull, ShouldBeNil)
		})

		Convey("显式 false", func() {
			tag, err := ParseTag("a,unique=false")
			So(err, ShouldBeNil)
			So(*tag.Unique, ShouldBeFalse)
		})

		Convey("省略列名", func() {
			tag, err := ParseTag("pk")
			So(err, ShouldBeNil)
			So(tag.Column, ShouldEqual, "")
			So(tag.PrimaryKey, ShouldBeTrue)
		})

		Convey("忽略字段", func() {
			tag, err := ParseTag("-")
			So(err, ShouldBeNil)
			So(tag.Ignore, ShouldBeTrue)
		})

		Convey("非法属性", func() {
			_, err := ParseTag("a,size=abc")
			So(err, ShouldNotBeNil)
			_, err = ParseTag("a,autoincrement")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestModelOf(t *testing.T) {
	Convey("测试表模型推导", t, func() {
		m, err := ModelOf[Ex1](value.Bytes, dialect.Generic)
		So(err, ShouldBeNil)

		So(m.Table().Name, ShouldEqual, "ex_1")
		So(m.Table().PrimaryKey, ShouldResemble, []string{"pk"})
		So(m.Table().Columns, ShouldResemble, []schema.Column{
			{Name: "field1", Type: "varchar(50)", Attr: schema.FieldAttribute{Size: schema.Int(50), Unique: schema.Bool(true), NotNull: schema.Bool(true)}},
			{Name: "aaaa", Type: "int"},
			{Name: "pk", Type: "int", Attr: schema.FieldAttribute{PrimaryKey: schema.Bool(true)}},
		})
		So(m.CreateTableSQL(), ShouldEqual,
			"CREATE TABLE IF NOT EXISTS ex_1 (field1 varchar(50) UNIQUE NOT NULL, aaaa int, pk int, CONSTRAINT primary_key PRIMARY KEY(pk))")
		So(m.DropTableSQL(), ShouldEqual, "DROP TABLE IF EXISTS ex_1")

		Convey("模型被缓存", func() {
			m2, err := ModelOf[Ex1](value.Bytes, dialect.Generic)
			So(err, ShouldBeNil)
			So(m2, ShouldPointTo, m)
		})

		Convey("默认表名为类型名", func() {
			m, err := ModelOf[Ex2](value.Bytes, dialect.Generic)
			So(err, ShouldBeNil)
			So(m.Table().Name, ShouldEqual, "Ex2")
			So(m.Table().PrimaryKey, ShouldResemble, []string{"pk", "pk2"})
			So(m.Table().PrimaryKeySQL(), ShouldEqual, "CONSTRAINT primary_key PRIMARY KEY(pk,pk2)")
		})

		Convey("varchar 类型覆盖", func() {
			m, err := ModelOf[Nullable](value.Bytes, dialect.Generic)
			So(err, ShouldBeNil)
			c, _ := m.Table().Column("name")
			So(c.Type, ShouldEqual, "varchar(20)")
		})

		Convey("匿名结构体展开，同名索引合并", func() {
			m, err := ModelOf[WithEmbedded](value.Bytes, dialect.SQLite)
			So(err, ShouldBeNil)
			So(m.Columns(), ShouldResemble, []string{"created_by", "id", "kind"})
			So(m.DeclaredIndexSQL(), ShouldResemble, []string{
				"CREATE INDEX IF NOT EXISTS idx_audit ON WithEmbedded(created_by,kind)",
			})
		})

		Convey("推导错误", func() {
			_, err := ModelOf[NoPK](value.Bytes, dialect.Generic)
			So(errors.Is(err, ErrInvalidModel), ShouldBeTrue)

			_, err = ModelOf[BadVarchar](value.Bytes, dialect.Generic)
			So(errors.Is(err, ErrInvalidModel), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Name")

			_, err = ModelOf[BadTag](value.Bytes, dialect.Generic)
			So(errors.Is(err, ErrInvalidModel), ShouldBeTrue)

			_, err = ModelOf[BadType](value.Bytes, dialect.Generic)
			So(errors.Is(err, value.ErrUnsupportedType), ShouldBeTrue)

			So(func() { MustModelOf[NoPK](value.Bytes, dialect.Generic) }, ShouldPanic)
		})

		Convey("具名参数方言拒绝无法绑定的列名", func() {
			_, err := ModelOf[UnderscoreID](value.Bytes, dialect.SQLite)
			So(errors.Is(err, ErrInvalidModel), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "_id")

			m, err := ModelOf[UnderscoreID](value.Bytes, dialect.MySQL)
			So(err, ShouldBeNil)
			So(m.Columns(), ShouldResemble, []string{"_id", "Body"})
		})
	})
}

func TestModelAccessor(t *testing.T) {
	Convey("测试列名访问", t, func() {
		m := MustModelOf[Ex1](value.Bytes, dialect.Generic)
		So(m.MustColumn("Field1"), ShouldEqual, "field1")

		q, err := m.Qualified("Aaaa")
		So(err, ShouldBeNil)
		So(q, ShouldEqual, "ex_1.aaaa")
		So(m.QualifiedColumns(), ShouldResemble, []string{"ex_1.field1", "ex_1.aaaa", "ex_1.pk"})

		_, err = m.Column("Cache")
		So(err, ShouldNotBeNil)
	})
}

func TestModelMapping(t *testing.T) {
	Convey("测试读写映射", t, func() {
		m := MustModelOf[Ex1](value.Bytes, dialect.Generic)
		ex1 := Ex1{Field1: "aaa", Aaaa: 10, PK: 1}

		params, err := m.Encode(ex1)
		So(err, ShouldBeNil)
		So(params.Names(), ShouldResemble, []string{"field1", "aaaa", "pk"})
		aaa, _ := value.Serialize(value.Bytes, "aaa")
		ten, _ := value.Serialize(value.Bytes, int32(10))
		So(params[0].Value, ShouldResemble, aaa)
		So(params[1].Value, ShouldResemble, ten)

		Convey("读映射", func() {
			row := Row[[]byte]{}
			row["field1"], _ = value.Serialize(value.Bytes, "piyo")
			row["aaaa"], _ = value.Serialize(value.Bytes, int32(-10000))
			row["pk"], _ = value.Serialize(value.Bytes, int32(200))

			ex2, err := MapRow[Ex1](m, row)
			So(err, ShouldBeNil)
			So(ex2, ShouldResemble, Ex1{Field1: "piyo", Aaaa: -10000, PK: 200})
		})

		Convey("写后读还原记录", func() {
			row := Row[[]byte]{}
			for _, p := range params {
				row[p.Name] = p.Value
			}
			var got Ex1
			So(m.Decode(row, &got), ShouldBeNil)
			So(got, ShouldResemble, ex1)
		})

		Convey("缺少列", func() {
			row := Row[[]byte]{"field1": []byte("x")}
			_, err := MapRow[Ex1](m, row)
			var mce *MissingColumnError
			So(errors.As(err, &mce), ShouldBeTrue)
			So(mce.Column, ShouldEqual, "aaaa")
		})

		Convey("类型不匹配带列名", func() {
			row := Row[[]byte]{"field1": []byte("x"), "aaaa": []byte{1}, "pk": []byte{0x80, 0, 0, 1}}
			_, err := MapRow[Ex1](m, row)
			var ce *value.ConversionError
			So(errors.As(err, &ce), ShouldBeTrue)
			So(ce.Column, ShouldEqual, "aaaa")
		})

		Convey("可空字段", func() {
			nm := MustModelOf[Nullable](value.Bytes, dialect.Generic)
			params, err := nm.Encode(&Nullable{ID: 1})
			So(err, ShouldBeNil)
			So(params[1].Value, ShouldBeNil)

			var got Nullable
			So(nm.Decode(Row[[]byte]{"id": params[0].Value, "name": nil}, &got), ShouldBeNil)
			So(got.Name, ShouldBeNil)
			So(got.ID, ShouldEqual, int64(1))
		})
	})
}

func TestStatements(t *testing.T) {
	Convey("测试语句生成", t, func() {
		ex1 := Ex1{Field1: "aaa", Aaaa: 10, PK: 1}

		Convey("具名占位符", func() {
			m := MustModelOf[Ex1](value.Bytes, dialect.Generic)
			stmt, err := m.InsertStatement(ex1)
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "INSERT INTO ex_1 (field1, aaaa, pk) VALUES (:field1, :aaaa, :pk)")
			So(len(stmt.Params), ShouldEqual, 3)

			stmt, err = m.UpdateStatement(ex1)
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "UPDATE ex_1 SET field1 = :field1, aaaa = :aaaa, pk = :pk WHERE pk = :pk")
			So(len(stmt.Params), ShouldEqual, 3)
		})

		Convey("联合主键用 AND 连接", func() {
			m := MustModelOf[Ex2](value.Bytes, dialect.Generic)
			stmt, err := m.UpdateStatement(Ex2{Field1: "a", PK: 1, PK2: 2})
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "UPDATE Ex2 SET field1 = :field1, aaaa = :aaaa, pk = :pk, pk2 = :pk2 WHERE pk = :pk AND pk2 = :pk2")
		})

		Convey("位置占位符追加主键参数", func() {
			m := MustModelOf[Ex2](value.Bytes, dialect.Postgres)
			stmt, err := m.UpdateStatement(Ex2{Field1: "a", PK: 1, PK2: 2})
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "UPDATE Ex2 SET field1 = $1, aaaa = $2, pk = $3, pk2 = $4 WHERE pk = $5 AND pk2 = $6")
			So(stmt.Params.Names(), ShouldResemble, []string{"field1", "aaaa", "pk", "pk2", "pk", "pk2"})

			m2 := MustModelOf[Ex1](value.Bytes, dialect.MySQL)
			stmt, err = m2.InsertStatement(ex1)
			So(err, ShouldBeNil)
			So(stmt.SQL, ShouldEqual, "INSERT INTO ex_1 (field1, aaaa, pk) VALUES (?, ?, ?)")
		})

		Convey("索引", func() {
			m := MustModelOf[Ex2](value.Bytes, dialect.Generic)
			sql, err := m.CreateIndexSQL("hoge", true, "aaaa")
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, "CREATE UNIQUE INDEX IF NOT EXISTS hoge ON Ex2(aaaa)")

			_, err = m.CreateIndexSQL("hoge", false, "field5")
			So(errors.Is(err, schema.ErrUnknownColumn), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "field5")
		})

		Convey("记录类型不匹配", func() {
			m := MustModelOf[Ex1](value.Bytes, dialect.Generic)
			_, err := m.InsertStatement(Ex2{})
			So(err, ShouldNotBeNil)
		})
	})
}
