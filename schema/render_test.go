package schema

import (
	"database/sql"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func nan() float64 {
	return math.NaN()
}

func TestRenderDate(t *testing.T) {
	Convey("测试日期和时间", t, func() {
		epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
		day := time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)

		Convey("1970-01-01 表示没有日期", func() {
			for _, dt := range []DataType{DataTypeDate, DataTypeDateTime, DataTypeDateTime2, DataTypeDateTimeOffset, DataTypeSmallDateTime} {
				c := NewColumn("d", dt, 0, WithFormat("whatever"))
				So(c.Render(epoch), ShouldEqual, "")
				So(c.Render(epoch.Add(5*time.Hour)), ShouldEqual, "")
				So(c.Render("1970-01-01"), ShouldEqual, "")
				So(c.Render(day), ShouldContainSubstring, "2024")
			}
		})

		Convey("日期", func() {
			c := NewColumn("birthday", DataTypeDate, 0)
			So(c.Render(day), ShouldEqual, "2024-03-05")
			So(c.Render("2024-03-05 10:00:00"), ShouldEqual, "2024-03-05")
			So(c.Render(sql.NullTime{Time: day, Valid: true}), ShouldEqual, "2024-03-05")
			So(c.Render(sql.NullTime{}), ShouldEqual, "")
			So(c.Render(nil), ShouldEqual, "")
			So(c.Render(time.Time{}), ShouldEqual, "")
		})

		Convey("日期时间可以从文本重新解析", func() {
			c := NewColumn("created", DataTypeDateTime, 0)
			So(c.Render(day), ShouldEqual, "2024-03-05 10:20:30")
			So(c.Render("2024-03-05T10:20:30Z"), ShouldEqual, "2024-03-05 10:20:30")
			So(c.Render([]byte("2024/03/05 10:20:30")), ShouldEqual, "2024-03-05 10:20:30")
			So(c.Render("garbage"), ShouldEqual, "")
			So(c.Render(42), ShouldEqual, "")
		})

		Convey("时间", func() {
			c := NewColumn("at", DataTypeTime, 0)
			So(c.Render(day), ShouldEqual, "10:20:30")
			So(c.Render("08:15"), ShouldEqual, "08:15:00")
			So(c.Render(epoch), ShouldEqual, "00:00:00")
		})

		Convey("按语言输出", func() {
			c := NewColumn("birthday", DataTypeDate, 0)
			So(c.RenderLocale(LocaleFor("zh-CN"), day), ShouldEqual, "2024年03月05日")
			So(c.RenderLocale(LocaleFor("ja-JP"), day), ShouldEqual, "2024/03/05")
			So(c.RenderLocale(LocaleFor("ko"), day), ShouldEqual, "2024. 03. 05.")
			So(c.RenderLocale(nil, day), ShouldEqual, "2024-03-05")
			So(LocaleFor(), ShouldEqual, DefaultLocale)
			So(LocaleFor("not a tag!"), ShouldEqual, DefaultLocale)

			l, ok := LookupLocale("de-DE")
			So(ok, ShouldBeFalse)
			So(l, ShouldEqual, DefaultLocale)
			l, ok = LookupLocale("hu-HU")
			So(ok, ShouldBeTrue)
			So(l.DateLayout, ShouldEqual, "2006. 01. 02.")

			c = NewColumn("created", DataTypeDateTime, 0)
			So(c.RenderLocale(LocaleFor("ja"), day), ShouldEqual, "2024/03/05 10:20:30")
		})
	})
}

func TestRenderValues(t *testing.T) {
	Convey("测试其它类型的渲染", t, func() {
		Convey("sql.Null* 先展开", func() {
			c := NewColumn("n", DataTypeInteger, 0, WithFormat("4`10`0"))
			So(c.Render(sql.NullInt64{Int64: 7, Valid: true}), ShouldEqual, "0007")
			So(c.Render(sql.NullInt64{}), ShouldEqual, "")

			n := 9
			So(c.Render(&n), ShouldEqual, "0009")
			var np *int
			So(c.Render(np), ShouldEqual, "")

			r := NewColumn("r", DataTypeReal, 0)
			So(r.Render(sql.NullFloat64{Float64: 2.5, Valid: true}), ShouldEqual, "2.5")
			So(r.Render(sql.NullFloat64{}), ShouldEqual, "")
		})

		Convey("文本类型原样返回", func() {
			c := NewColumn("name", DataTypeVarChar, 0, WithFormat("6`10` "))
			So(c.Render("bob"), ShouldEqual, "bob")
			So(c.Render([]byte("raw")), ShouldResemble, []byte("raw"))
			So(c.Text([]byte("raw")), ShouldEqual, "raw")
			So(c.Text(nil), ShouldEqual, "")
			So(NewColumn("x", DataTypeXML, 0).Text(12), ShouldEqual, "12")
		})

		Convey("重复渲染结果相同", func() {
			columns := []Column{
				NewColumn("n", DataTypeInteger, 0, WithFormat("6`16`0")),
				NewColumn("r", DataTypeDecimal, 1, WithFormat("10`f`3`_")),
				NewColumn("b", DataTypeTristate, 2, WithFormat("Y")),
				NewColumn("d", DataTypeDateTime, 3),
			}
			values := []any{int64(-255), "12.3456", 1, time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)}
			for i, c := range columns {
				first := c.Render(values[i])
				So(c.Render(values[i]), ShouldEqual, first)
				So(c.Render(values[i]), ShouldEqual, first)
			}
		})
	})
}

func TestCallback(t *testing.T) {
	Convey("测试回调列", t, func() {
		c := NewColumn("full", DataTypeCallback, 0)

		Convey("没有取值函数时返回 nil", func() {
			So(c.Provider(), ShouldBeNil)
			So(c.Callback(nil, nil, RoleDisplay, nil), ShouldBeNil)
			So(c.Render("x"), ShouldBeNil)
			So(c.Text("x"), ShouldEqual, "")
		})

		Convey("调用取值函数", func() {
			var got Role
			c.SetProvider(func(t Taew, col Column, row Row, role Role, userData any) any {
				got = role
				return col.Name() + ":" + row["first"].(string) + " " + row["last"].(string) + userData.(string)
			})
			v := c.Callback(nil, Row{"first": "Ada", "last": "Lovelace"}, RoleEdit, "!")
			So(v, ShouldEqual, "full:Ada Lovelace!")
			So(got, ShouldEqual, RoleEdit)

			copied := c
			So(copied.Provider(), ShouldNotBeNil)
		})

		Convey("Render 把值作为 userData 传给取值函数", func() {
			c.SetProvider(func(t Taew, col Column, row Row, role Role, userData any) any {
				So(t, ShouldBeNil)
				So(row, ShouldBeNil)
				So(role, ShouldEqual, RoleDisplay)
				return userData
			})
			So(c.Render("x"), ShouldEqual, "x")
			So(c.Text(42), ShouldEqual, "42")
		})

		Convey("非回调列设置取值函数不生效", func() {
			n := NewColumn("n", DataTypeInteger, 0, WithFormat("4`10`0"))
			n.SetProvider(func(Taew, Column, Row, Role, any) any { return "x" })
			So(n.Provider(), ShouldBeNil)
			So(n.Callback(nil, nil, RoleDisplay, nil), ShouldBeNil)
			So(n.Render(1), ShouldEqual, "0001")
		})

		Convey("按名字注册取值函数", func() {
			p := func(Taew, Column, Row, Role, any) any { return 1 }
			So(RegisterProvider("render_test.one", p), ShouldBeNil)
			So(RegisterProvider("render_test.one", p), ShouldNotBeNil)
			So(RegisterProvider("", p), ShouldNotBeNil)

			found, err := LookupProvider("render_test.one")
			So(err, ShouldBeNil)
			So(found(nil, Column{}, nil, RoleDisplay, nil), ShouldEqual, 1)

			_, err = LookupProvider("render_test.missing")
			So(err, ShouldNotBeNil)
		})
	})
}
