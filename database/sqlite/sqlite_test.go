package sqlite

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/rdbx/cache"
	"github.com/hatlonely/rdbx/conn"
	"github.com/hatlonely/rdbx/derive"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/query"
	rvalue "github.com/hatlonely/rdbx/value"
)

type User struct {
	UserID string `rdb:"user_id,size=50,pk"`
	Name   string `rdb:"name,size=50,index"`
	Email  string `rdb:"email,size=256"`
	Age    int32  `rdb:"age"`
}

func (User) TableName() string {
	return "user"
}

type UserItem struct {
	UserID string `rdb:"user_id,size=50,pk"`
	ItemID string `rdb:"item_id,size=50,pk"`
}

func (UserItem) TableName() string {
	return "user_item_relation"
}

type JoinedUserItemsView struct {
	User   User
	ItemID *string
}

func (v *JoinedUserItemsView) MapRow(codec rvalue.Codec[Value], d *dialect.Dialect, row conn.Row[Value]) error {
	m, err := derive.ModelOf[User](codec, d)
	if err != nil {
		return err
	}
	if err := m.Decode(row, &v.User); err != nil {
		return err
	}
	v.ItemID, err = rvalue.Deserialize[*string](codec, row["item_id"])
	return err
}

func newTestConn() *Conn {
	c, err := NewWithOptions(&Options{Path: ":memory:"})
	So(err, ShouldBeNil)
	return c
}

func byUserID(id string) query.Builder {
	return query.New().Filter("user.user_id = ?", id)
}

func TestValueCodec(t *testing.T) {
	Convey("sqlite 编解码", t, func() {
		v, err := rvalue.Serialize(Codec, int32(-7))
		So(err, ShouldBeNil)
		So(v, ShouldResemble, IntegerValue(-7))

		v, err = rvalue.Serialize(Codec, true)
		So(err, ShouldBeNil)
		So(v, ShouldResemble, IntegerValue(1))

		s, err := rvalue.Deserialize[string](Codec, BlobValue([]byte("abc")))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "abc")

		f, err := rvalue.Deserialize[float64](Codec, IntegerValue(3))
		So(err, ShouldBeNil)
		So(f, ShouldEqual, 3.0)

		Convey("NULL 只能解码到指针", func() {
			p, err := rvalue.Deserialize[*int64](Codec, Value{})
			So(err, ShouldBeNil)
			So(p, ShouldBeNil)

			_, err = rvalue.Deserialize[int64](Codec, Value{})
			var ce *rvalue.ConversionError
			So(errors.As(err, &ce), ShouldBeTrue)
		})

		Convey("文本不能解码为整数", func() {
			_, err := rvalue.Deserialize[int64](Codec, TextValue("12"))
			var ce *rvalue.ConversionError
			So(errors.As(err, &ce), ShouldBeTrue)
		})

		Convey("超出 int64 的无符号整数无法编码", func() {
			_, err := rvalue.Serialize(Codec, uint64(1)<<63)
			var ce *rvalue.ConversionError
			So(errors.As(err, &ce), ShouldBeTrue)
		})

		Convey("驱动值转换", func() {
			So(FromDriver(nil).Kind, ShouldEqual, Null)
			So(FromDriver(false), ShouldResemble, IntegerValue(0))
			So(FromDriver(1.5), ShouldResemble, RealValue(1.5))
			So(FromDriver("x"), ShouldResemble, TextValue("x"))
		})
	})
}

func TestConn(t *testing.T) {
	Convey("sqlite 连接", t, func() {
		ctx := context.Background()
		c := newTestConn()
		defer c.Close()

		So(conn.CreateTable[User](ctx, c), ShouldBeNil)
		So(conn.CreateTable[UserItem](ctx, c), ShouldBeNil)
		// 重复建表
		So(conn.CreateTable[User](ctx, c), ShouldBeNil)

		user1 := User{UserID: "user-123456", Name: "foo", Email: "dddd@example.com", Age: 20}
		user2 := User{UserID: "user-456789", Name: "bar", Email: "quux@example.com", Age: 55}
		So(conn.Save(ctx, c, user1), ShouldBeNil)
		So(conn.Save(ctx, c, user2), ShouldBeNil)
		So(conn.CreateAll(ctx, c, []User{{UserID: "_a"}, {UserID: "_b"}}), ShouldBeNil)

		Convey("加载全部记录", func() {
			users, err := conn.Load[User](ctx, c, query.New())
			So(err, ShouldBeNil)
			So(len(users), ShouldEqual, 4)
			So(users[:2], ShouldResemble, []User{user1, user2})
		})

		Convey("Save 插入后按主键更新", func() {
			user3 := User{UserID: "user-savetest", Name: "foo", Email: "dddd@example.com", Age: 20}
			So(conn.Save(ctx, c, user3), ShouldBeNil)
			got, err := conn.First[User](ctx, c, byUserID("user-savetest"))
			So(err, ShouldBeNil)
			So(got.Age, ShouldEqual, 20)

			user3.Age = 21
			So(conn.Save(ctx, c, user3), ShouldBeNil)
			got, err = conn.First[User](ctx, c, byUserID("user-savetest"))
			So(err, ShouldBeNil)
			So(got.Age, ShouldEqual, 21)
		})

		Convey("主键冲突时 Create 返回错误", func() {
			So(conn.Create(ctx, c, user1), ShouldNotBeNil)
		})

		Convey("First 没有记录时返回 ErrNotFound", func() {
			_, err := conn.First[User](ctx, c, byUserID("nobody"))
			So(errors.Is(err, conn.ErrNotFound), ShouldBeTrue)
		})

		Convey("结构化条件与排序", func() {
			users, err := conn.Load[User](ctx, c, query.New().
				Where(&query.RangeQuery{Field: "age", Gte: 20}).
				OrderBy("age", query.Desc))
			So(err, ShouldBeNil)
			So(users, ShouldResemble, []User{user2, user1})
		})

		Convey("join 视图", func() {
			userID := "user-join-and-load"
			So(conn.Save(ctx, c, User{UserID: userID, Name: "foo", Email: "dddd@example.com", Age: 20}), ShouldBeNil)
			So(conn.CreateAll(ctx, c, []UserItem{
				{UserID: userID, ItemID: "item-abcd"},
				{UserID: userID, ItemID: "item-defg"},
				{UserID: userID, ItemID: "item-pqrs"},
			}), ShouldBeNil)

			views, err := conn.Load2[User, JoinedUserItemsView](ctx, c, query.New().
				LeftJoin("user_item_relation", query.On{Left: "user_id", Right: "user_id"}).
				Filter("user.user_id = ?", userID).
				AppendSelects("user_item_relation.item_id").
				OrderBy("user_item_relation.item_id", query.Asc))
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 3)
			for i, id := range []string{"item-abcd", "item-defg", "item-pqrs"} {
				So(views[i].User.UserID, ShouldEqual, userID)
				So(*views[i].ItemID, ShouldEqual, id)
			}

			Convey("没有关联记录时右表列为 NULL", func() {
				views, err := conn.Load2[User, JoinedUserItemsView](ctx, c, query.New().
					LeftJoin("user_item_relation", query.On{Left: "user_id", Right: "user_id"}).
					Filter("user.user_id = ?", user1.UserID).
					AppendSelects("user_item_relation.item_id"))
				So(err, ShouldBeNil)
				So(len(views), ShouldEqual, 1)
				So(views[0].User, ShouldResemble, user1)
				So(views[0].ItemID, ShouldBeNil)
			})
		})

		Convey("创建与删除索引", func() {
			So(conn.CreateIndex[User](ctx, c, "idx_user_email", "email"), ShouldBeNil)
			So(conn.CreateIndex[User](ctx, c, "idx_user_email", "email"), ShouldBeNil)
			So(conn.DropIndex[User](ctx, c, "idx_user_email"), ShouldBeNil)

			So(conn.CreateUniqueIndex[User](ctx, c, "idx_bad", "nope"), ShouldNotBeNil)
		})

		Convey("事务回滚", func() {
			err := conn.WithTx[Value](ctx, c, func(tx conn.Tx[Value]) error {
				if err := conn.Create(ctx, tx, User{UserID: "tx-user"}); err != nil {
					return err
				}
				return errors.New("abort")
			})
			So(err, ShouldNotBeNil)
			_, err = conn.First[User](ctx, c, byUserID("tx-user"))
			So(errors.Is(err, conn.ErrNotFound), ShouldBeTrue)

			So(conn.WithTx[Value](ctx, c, func(tx conn.Tx[Value]) error {
				return conn.Create(ctx, tx, User{UserID: "tx-user"})
			}), ShouldBeNil)
			_, err = conn.First[User](ctx, c, byUserID("tx-user"))
			So(err, ShouldBeNil)
		})

		Convey("删表", func() {
			So(conn.DropTable[UserItem](ctx, c), ShouldBeNil)
			_, err := conn.Load[UserItem](ctx, c, query.New())
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCached(t *testing.T) {
	Convey("缓存查询结果", t, func() {
		ctx := context.Background()
		c := newTestConn()
		defer c.Close()

		store, err := cache.NewFreeCacheStoreWithOptions(&cache.FreeCacheStoreOptions{Size: 1024 * 1024})
		So(err, ShouldBeNil)
		cached, err := conn.NewCachedWithOptions[Value](c, store, &conn.CachedOptions{Namespace: "test"})
		So(err, ShouldBeNil)

		So(conn.CreateTable[User](ctx, cached), ShouldBeNil)
		So(conn.Create(ctx, cached, User{UserID: "u1", Age: 1}), ShouldBeNil)

		got, err := conn.First[User](ctx, cached, byUserID("u1"))
		So(err, ShouldBeNil)
		So(got.Age, ShouldEqual, 1)

		// 绕过缓存直接修改，缓存中仍是旧值
		_, err = c.Exec(ctx, "UPDATE user SET age = 2 WHERE user_id = 'u1'", nil)
		So(err, ShouldBeNil)
		got, err = conn.First[User](ctx, cached, byUserID("u1"))
		So(err, ShouldBeNil)
		So(got.Age, ShouldEqual, 1)

		// 经过缓存的写入使缓存失效
		So(conn.Save(ctx, cached, User{UserID: "u1", Age: 3}), ShouldBeNil)
		got, err = conn.First[User](ctx, cached, byUserID("u1"))
		So(err, ShouldBeNil)
		So(got.Age, ShouldEqual, 3)

		Convey("事务提交使缓存失效", func() {
			So(conn.WithTx[Value](ctx, cached, func(tx conn.Tx[Value]) error {
				return conn.Save(ctx, tx, User{UserID: "u1", Age: 4})
			}), ShouldBeNil)
			got, err := conn.First[User](ctx, cached, byUserID("u1"))
			So(err, ShouldBeNil)
			So(got.Age, ShouldEqual, 4)
		})
	})
}

type Doc struct {
	ID   int64 `rdb:"_id,pk"`
	Body string
}

func TestUnbindableColumn(t *testing.T) {
	Convey("列名无法作为具名参数时推导失败", t, func() {
		ctx := context.Background()
		c := newTestConn()
		defer c.Close()

		err := conn.CreateTable[Doc](ctx, c)
		So(errors.Is(err, derive.ErrInvalidModel), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "_id")

		err = conn.Save(ctx, c, Doc{ID: 1, Body: "x"})
		So(errors.Is(err, derive.ErrInvalidModel), ShouldBeTrue)
	})
}

func TestCachedTiered(t *testing.T) {
	Convey("多个进程共享最后一层缓存", t, func() {
		ctx := context.Background()
		c := newTestConn()
		defer c.Close()

		newStore := func() cache.Store {
			store, err := cache.NewFreeCacheStoreWithOptions(&cache.FreeCacheStoreOptions{Size: 1024 * 1024})
			So(err, ShouldBeNil)
			return store
		}
		shared := newStore()
		a, err := conn.NewCachedWithOptions[Value](c, cache.NewTieredStore(true, newStore(), shared), &conn.CachedOptions{Namespace: "test"})
		So(err, ShouldBeNil)
		b, err := conn.NewCachedWithOptions[Value](c, cache.NewTieredStore(true, newStore(), shared), &conn.CachedOptions{Namespace: "test"})
		So(err, ShouldBeNil)

		So(conn.CreateTable[User](ctx, a), ShouldBeNil)
		So(conn.Create(ctx, a, User{UserID: "u1", Age: 1}), ShouldBeNil)

		got, err := conn.First[User](ctx, a, byUserID("u1"))
		So(err, ShouldBeNil)
		So(got.Age, ShouldEqual, 1)
		got, err = conn.First[User](ctx, b, byUserID("u1"))
		So(err, ShouldBeNil)
		So(got.Age, ShouldEqual, 1)

		So(conn.Save(ctx, b, User{UserID: "u1", Age: 2}), ShouldBeNil)
		got, err = conn.First[User](ctx, a, byUserID("u1"))
		So(err, ShouldBeNil)
		So(got.Age, ShouldEqual, 2)
	})
}

func TestObservable(t *testing.T) {
	Convey("可观测连接", t, func() {
		ctx := context.Background()
		c := newTestConn()
		defer c.Close()

		registry := prometheus.NewRegistry()
		obs, err := conn.NewObservableWithOptions[Value](c, &conn.ObservableOptions{
			Name:          "rdbx_sqlite_test",
			EnableMetrics: true,
			EnableLogging: true,
			Registerer:    registry,
		})
		So(err, ShouldBeNil)

		So(conn.CreateTable[User](ctx, obs), ShouldBeNil)
		So(conn.Create(ctx, obs, User{UserID: "u1"}), ShouldBeNil)
		users, err := conn.Load[User](ctx, obs, query.New())
		So(err, ShouldBeNil)
		So(len(users), ShouldEqual, 1)
		So(conn.Create(ctx, obs, User{UserID: "u1"}), ShouldNotBeNil)

		n, err := testutil.GatherAndCount(registry, "rdbx_sqlite_test_operations_total")
		So(err, ShouldBeNil)
		// exec/success query/success exec/error
		So(n, ShouldEqual, 3)

		Convey("事务的开始与提交", func() {
			So(conn.WithTx[Value](ctx, obs, func(tx conn.Tx[Value]) error {
				return conn.Save(ctx, tx, User{UserID: "u1", Age: 5})
			}), ShouldBeNil)
			got, err := conn.First[User](ctx, obs, byUserID("u1"))
			So(err, ShouldBeNil)
			So(got.Age, ShouldEqual, 5)

			n, err := testutil.GatherAndCount(registry, "rdbx_sqlite_test_operations_total")
			So(err, ShouldBeNil)
			// 新增 begin/success commit/success
			So(n, ShouldEqual, 5)
		})

		Convey("同名指标重复创建时复用", func() {
			_, err := conn.NewObservableWithOptions[Value](c, &conn.ObservableOptions{
				Name:          "rdbx_sqlite_test",
				EnableMetrics: true,
				Registerer:    registry,
			})
			So(err, ShouldBeNil)
		})
	})
}
