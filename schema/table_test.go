package schema

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func personColumns() []Column {
	return []Column{
		NewColumn("id", DataTypeInteger, 0, WithAllowNulls(false), WithAutoIncrement(), WithReadOnly(true)),
		NewColumn("name", DataTypeVarChar, 1, WithLength(64), WithAllowNulls(false), WithDefault("'x'")),
		NewColumn("age", DataTypeInteger, 2),
		NewColumn("summary", DataTypeText, 3, WithVirtual()),
	}
}

func newPersonTable() *Table {
	t, err := NewTable("person", personColumns())
	So(err, ShouldBeNil)
	return t
}

func TestTable(t *testing.T) {
	Convey("测试表", t, func() {
		table := newPersonTable()

		Convey("基本信息", func() {
			So(table.Kind(), ShouldEqual, KindTable)
			So(table.Kind().String(), ShouldEqual, "table")
			So(table.TableName(), ShouldEqual, "person")
			So(table.ModifyTableName(), ShouldEqual, "person")
			So(table.ColumnCount(), ShouldEqual, 4)
			So(table.ColumnNames(), ShouldResemble, []string{"id", "name", "age", "summary"})
			So(table.ColumnName(1), ShouldEqual, "name")
			So(table.ColumnLabel(2), ShouldEqual, "age")
			So(table.Column(99).DataType(), ShouldEqual, DataTypeInvalid)
			So(table.ColumnName(-1), ShouldBeEmpty)
			So(table.PrimaryKey(), ShouldEqual, "id")
		})

		Convey("按名字查找忽略大小写", func() {
			So(table.ColumnIndex("NAME"), ShouldEqual, 1)
			So(table.ColumnIndex("Age"), ShouldEqual, 2)
			So(table.ColumnIndex("missing"), ShouldEqual, -1)
			So(table.HasColumn("ID"), ShouldBeTrue)
			So(table.HasColumn("email"), ShouldBeFalse)
		})

		Convey("真实列序号", func() {
			So(table.RealColumnIndex("age"), ShouldEqual, 2)
			So(table.RealColumnIndex("summary"), ShouldEqual, -1)
			So(table.RealColumnIndex("missing"), ShouldEqual, -1)
			So(table.ToRealIndex(1), ShouldEqual, 1)
			So(table.ToRealIndex(3), ShouldEqual, -1)
			So(table.ToRealIndex(10), ShouldEqual, -1)
		})

		Convey("缓存的 SQL 片段不包含虚拟列", func() {
			So(table.IDColumn(), ShouldEqual, 0)
			So(table.CommaColumns(), ShouldEqual, "id,name,age")
			So(table.CommaColumnsNoID(), ShouldEqual, "name,age")
			So(table.ColumnColumns(), ShouldEqual, ":name,:age")
			So(table.AssignColumns(), ShouldEqual, "name=:name,age=:age")
		})

		Convey("Columns 返回副本", func() {
			columns := table.Columns()
			columns[0].SetName("changed")
			So(table.ColumnName(0), ShouldEqual, "id")
		})
	})
}

func TestNewTable(t *testing.T) {
	Convey("测试 NewTable", t, func() {
		Convey("位置与序号不一致时修正", func() {
			buf, lg := newBufferLogger()
			table, err := NewTable("t", []Column{
				NewColumn("a", DataTypeInteger, 5),
				NewColumn("b", DataTypeInteger, 0, WithRealPosition(7)),
			}, WithTableLogger(lg))
			So(err, ShouldBeNil)
			So(table.Column(0).Position(), ShouldEqual, 0)
			So(table.Column(0).RealPosition(), ShouldEqual, 0)
			So(table.Column(1).Position(), ShouldEqual, 1)
			So(table.Column(1).RealPosition(), ShouldEqual, 1)
			So(buf.String(), ShouldContainSubstring, "position does not match")
		})

		Convey("没有 id 列", func() {
			table, err := NewTable("log", []Column{
				NewColumn("at", DataTypeDateTime, 0),
				NewColumn("message", DataTypeText, 1),
			})
			So(err, ShouldBeNil)
			So(table.IDColumn(), ShouldEqual, IDUnavailable)
			So(table.PrimaryKey(), ShouldBeEmpty)
			So(table.CommaColumnsNoID(), ShouldEqual, table.CommaColumns())
			So(table.ColumnColumns(), ShouldEqual, ":at,:message")
		})

		Convey("指定 id 列和主键", func() {
			table, err := NewTable("account", []Column{
				NewColumn("code", DataTypeChar, 0, WithLength(8)),
				NewColumn("owner", DataTypeVarChar, 1),
			}, WithIDColumn("CODE"), WithPrimaryKey("code"))
			So(err, ShouldBeNil)
			So(table.IDColumn(), ShouldEqual, 0)
			So(table.PrimaryKey(), ShouldEqual, "code")
			So(table.AssignColumns(), ShouldEqual, "owner=:owner")
		})

		Convey("虚拟列在前时 realPosition 仍等于序号", func() {
			table, err := NewTable("t", []Column{
				NewColumn("summary", DataTypeText, 0, WithVirtual()),
				NewColumn("id", DataTypeInteger, 1),
				NewColumn("name", DataTypeVarChar, 2),
			})
			So(err, ShouldBeNil)
			So(table.CommaColumns(), ShouldEqual, "id,name")
			So(table.RealColumnIndex("summary"), ShouldEqual, -1)
			So(table.RealColumnIndex("name"), ShouldEqual, 2)
			So(table.ToRealIndex(1), ShouldEqual, 1)
		})

		Convey("名字必须能直接写进语句", func() {
			table, err := NewTable("人员", []Column{
				NewColumn("id", DataTypeInteger, 0),
				NewColumn("名前", DataTypeVarChar, 1),
				NewColumn("first name", DataTypeText, 2, WithVirtual()),
			})
			So(err, ShouldBeNil)
			So(table.ColumnColumns(), ShouldEqual, ":名前")

			_, err = NewTable("t", []Column{NewColumn("first-name", DataTypeVarChar, 0)})
			So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
			_, err = NewTable("t", []Column{NewColumn("1st", DataTypeVarChar, 0)})
			So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
			_, err = NewTable("my table", personColumns())
			So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
		})

		Convey("错误", func() {
			_, err := NewTable("", personColumns())
			So(err, ShouldNotBeNil)

			_, err = NewTable("t", []Column{NewColumn("a", DataTypeText, 0), NewColumn("A", DataTypeText, 1)})
			So(errors.Is(err, ErrDuplicateColumn), ShouldBeTrue)

			_, err = NewTable("t", personColumns(), WithIDColumn("missing"))
			So(errors.Is(err, ErrColumnNotFound), ShouldBeTrue)

			_, err = NewTable("t", personColumns(), WithIDColumn("summary"))
			So(errors.Is(err, ErrColumnNotFound), ShouldBeTrue)

			_, err = NewTable("t", personColumns(), WithPrimaryKey("missing"))
			So(errors.Is(err, ErrColumnNotFound), ShouldBeTrue)
		})
	})
}

func TestView(t *testing.T) {
	Convey("测试视图", t, func() {
		table := newPersonTable()

		view, err := NewView("adults", table, Subset{Column: "age", Op: ">=", Value: "18"})
		So(err, ShouldBeNil)
		So(view.Kind(), ShouldEqual, KindView)
		So(view.TableName(), ShouldEqual, "adults")
		So(view.ModifyTableName(), ShouldEqual, "person")
		So(view.Source(), ShouldEqual, table)
		So(view.ColumnNames(), ShouldResemble, table.ColumnNames())
		So(view.CommaColumns(), ShouldEqual, "id,name,age")
		So(view.IDColumn(), ShouldEqual, 0)

		Convey("默认运算符为 =", func() {
			v, err := NewView("bobs", table, Subset{Column: "name", Value: "'bob'"})
			So(err, ShouldBeNil)
			So(v.Subset().Op, ShouldEqual, "=")
		})

		Convey("错误", func() {
			_, err := NewView("v", nil, Subset{Column: "age"})
			So(errors.Is(err, ErrTableNotFound), ShouldBeTrue)

			_, err = NewView("v", table, Subset{Column: "missing"})
			So(errors.Is(err, ErrColumnNotFound), ShouldBeTrue)

			_, err = NewView("v", table, Subset{Column: "id", InTable: "orders"})
			So(err, ShouldNotBeNil)

			_, err = NewView("", table, Subset{Column: "age"})
			So(err, ShouldNotBeNil)

			_, err = NewView("grown-ups", table, Subset{Column: "age"})
			So(errors.Is(err, ErrInvalidName), ShouldBeTrue)
		})
	})
}

func TestDatabase(t *testing.T) {
	Convey("测试数据库", t, func() {
		db := NewDatabase("people")
		table := newPersonTable()
		view, err := NewView("adults", table, Subset{Column: "age", Op: ">=", Value: "18"})
		So(err, ShouldBeNil)

		So(db.AddTable(table), ShouldBeNil)
		So(db.AddView(view), ShouldBeNil)
		So(db.Name(), ShouldEqual, "people")
		So(db.Tables(), ShouldHaveLength, 1)
		So(db.Views(), ShouldHaveLength, 1)

		found, err := db.Lookup("PERSON")
		So(err, ShouldBeNil)
		So(found, ShouldEqual, table)

		found, err = db.Lookup("Adults")
		So(err, ShouldBeNil)
		So(found.Kind(), ShouldEqual, KindView)

		_, err = db.Lookup("missing")
		So(errors.Is(err, ErrTableNotFound), ShouldBeTrue)

		_, err = db.Table("adults")
		So(errors.Is(err, ErrTableNotFound), ShouldBeTrue)

		got, err := db.Table("person")
		So(err, ShouldBeNil)
		So(got, ShouldEqual, table)

		So(db.AddTable(newPersonTable()), ShouldNotBeNil)
	})
}
