package definition

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/dialect"
	"github.com/hatlonely/dbstruct/schema"
)

const peopleYAML = `
name: people
tables:
  - name: person
    columns:
      - name: id
        type: integer
        allowNulls: false
        autoIncrement: true
      - name: name
        type: varchar
        length: 64
        default: "''"
      - name: age
        type: int
        format: "3` + "`" + `10` + "`" + `0"
      - name: greeting
        type: callback
        virtual: true
        provider: definition_test.greeting
views:
  - name: adults
    subset:
      table: person
      column: age
      op: ">="
      value: "18"
`

const peopleTOML = `
name = "people"

[[tables]]
name = "person"

[[tables.columns]]
name = "id"
type = "integer"
allowNulls = false
autoIncrement = true

[[tables.columns]]
name = "name"
type = "varchar"
length = 64

[[views]]
name = "adults"
[views.subset]
table = "person"
column = "age"
in = "orders"
inColumn = "person_id"
where = "total"
op = ">"
value = "0"
`

const peopleJSON = `{
  "name": "people",
  "tables": [{
    "name": "person",
    "idColumn": "code",
    "columns": [
      {"name": "code", "type": "char", "length": 8, "allowNulls": false},
      {"name": "active", "type": "bit", "format": "Yes"}
    ]
  }]
}`

const peopleXML = `<?xml version="1.0" encoding="UTF-8"?>
<database name="people" xmlns="http://github.com/TNick/pile-schema">
  <tables>
    <table name="person">
      <columns>
        <column name="id" label="Id"><integer><identity/></integer></column>
        <column name="name" label="Name" allowNulls="yes"><varchar length="64" default="'x'"/></column>
        <column name="created"><datetime defaultExpression="CURRENT_TIMESTAMP" sqltype="TIMESTAMP"/></column>
      </columns>
      <primaryKey><key><column name="id"/></key></primaryKey>
    </table>
  </tables>
  <views>
    <view name="named"><subset name1="person" col1="name" constraint="&lt;&gt;" value="''"/></view>
  </views>
</database>`

func init() {
	schema.MustRegisterProvider("definition_test.greeting", func(t schema.Taew, c schema.Column, row schema.Row, role schema.Role, userData any) any {
		return "hello " + row["name"].(string)
	})
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	So(os.WriteFile(path, []byte(content), 0644), ShouldBeNil)
	return path
}

func TestLoadFile(t *testing.T) {
	Convey("测试读取定义文件", t, func() {
		dir := t.TempDir()

		Convey("yaml", func() {
			def, err := LoadFile(writeFile(dir, "people.yaml", peopleYAML))
			So(err, ShouldBeNil)
			So(def.Name, ShouldEqual, "people")
			So(def.Tables, ShouldHaveLength, 1)

			columns := def.Tables[0].Columns
			So(columns, ShouldHaveLength, 4)
			So(columns[0].Length, ShouldEqual, -1)
			So(*columns[0].AllowNulls, ShouldBeFalse)
			So(*columns[1].AllowNulls, ShouldBeTrue)
			So(columns[1].Length, ShouldEqual, 64)
			So(columns[2].Format, ShouldEqual, "3`10`0")
			So(def.Views[0].Subset.Op, ShouldEqual, ">=")
		})

		Convey("toml", func() {
			def, err := LoadFile(writeFile(dir, "people.toml", peopleTOML))
			So(err, ShouldBeNil)
			So(def.Tables[0].Columns, ShouldHaveLength, 2)
			So(def.Views[0].Subset.In, ShouldEqual, "orders")
		})

		Convey("json", func() {
			def, err := LoadFile(writeFile(dir, "people.json", peopleJSON))
			So(err, ShouldBeNil)
			So(def.Tables[0].IDColumn, ShouldEqual, "code")
		})

		Convey("xml", func() {
			def, err := LoadFile(writeFile(dir, "people.xml", peopleXML))
			So(err, ShouldBeNil)
			So(def.Name, ShouldEqual, "people")

			table := def.Tables[0]
			So(table.PrimaryKey, ShouldEqual, "id")
			So(table.Columns[0].Type, ShouldEqual, "integer")
			So(table.Columns[0].AutoIncrement, ShouldBeTrue)
			// 缺少 allowNulls 时不允许 NULL
			So(*table.Columns[0].AllowNulls, ShouldBeFalse)
			So(*table.Columns[1].AllowNulls, ShouldBeTrue)
			So(table.Columns[1].Length, ShouldEqual, 64)
			So(table.Columns[1].Default, ShouldEqual, "'x'")
			So(table.Columns[2].Default, ShouldEqual, "CURRENT_TIMESTAMP")
			So(table.Columns[2].SQLType, ShouldEqual, "TIMESTAMP")

			So(def.Views[0].Subset, ShouldResemble, SubsetDefinition{Table: "person", Column: "name", Op: "<>", Value: "''"})
		})

		Convey("错误", func() {
			_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
			_, err = LoadFile(filepath.Join(dir, "missing.xml"))
			So(err, ShouldNotBeNil)

			_, err = LoadFile(writeFile(dir, "bad.yaml", "tables: [{name: t}]"))
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)

			_, err = ParseXML([]byte("<tables/>"))
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)
			_, err = ParseXML([]byte("<database"))
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)
			_, err = ParseXML([]byte(`<database><tables><table name="t"><columns><column name="c"/></columns></table></tables></database>`))
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)
			_, err = ParseXML([]byte(`<database><tables/><views><view name="v"><union/></view></views></database>`))
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("测试构造 schema", t, func() {
		Convey("表、列和视图", func() {
			def, err := Load([]byte(peopleYAML), cfg.FormatYAML)
			So(err, ShouldBeNil)
			db, err := Build(def)
			So(err, ShouldBeNil)

			person, err := db.Table("person")
			So(err, ShouldBeNil)
			So(person.IDColumn(), ShouldEqual, 0)
			So(person.CommaColumns(), ShouldEqual, "id,name,age")

			age := person.Column(2)
			So(age.DataType(), ShouldEqual, schema.DataTypeInteger)
			So(age.Render(7), ShouldEqual, "007")

			greeting := person.Column(3)
			So(greeting.IsVirtual(), ShouldBeTrue)
			So(greeting.Callback(person, schema.Row{"name": "bob"}, schema.RoleDisplay, nil), ShouldEqual, "hello bob")

			adults, err := db.Lookup("adults")
			So(err, ShouldBeNil)
			So(adults.ModifyTableName(), ShouldEqual, "person")
		})

		Convey("xml 定义生成建表语句", func() {
			def, err := ParseXML([]byte(peopleXML))
			So(err, ShouldBeNil)
			db, err := Build(def)
			So(err, ShouldBeNil)
			So(db.CreateSQL(dialect.MySQL), ShouldEqual, "CREATE TABLE IF NOT EXISTS `person` (\n"+
				"  `id` INTEGER NOT NULL AUTO_INCREMENT,\n"+
				"  `name` VARCHAR(64) DEFAULT 'x',\n"+
				"  `created` TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,\n"+
				"  PRIMARY KEY (`id`)\n"+
				");\n"+
				"CREATE OR REPLACE VIEW `named` AS\n"+
				"  SELECT * FROM `person` WHERE `name`<>''\n"+
				";\n")
		})

		Convey("错误", func() {
			_, err := Build(nil)
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)

			cases := []*DatabaseDefinition{
				{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "c", Type: "geometry"}}}}},
				{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "c", Type: "int", Provider: "x"}}}}},
				{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "c", Type: "callback", Provider: "missing"}}}}},
				{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "c", Type: "int"}, {Name: "C", Type: "int"}}}}},
				{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "c", Type: "int"}}}, {Name: "T", Columns: []ColumnDefinition{{Name: "c", Type: "int"}}}}},
				{Name: "db", Tables: []TableDefinition{{Name: "t"}}},
			{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "first-name", Type: "varchar"}}}}},
				{Name: "db", Views: []ViewDefinition{{Name: "v", Subset: SubsetDefinition{Table: "missing", Column: "c"}}}},
				{Name: "db", Tables: []TableDefinition{{Name: "t", Columns: []ColumnDefinition{{Name: "c", Type: "int"}}}},
					Views: []ViewDefinition{{Name: "v", Subset: SubsetDefinition{Table: "t", Column: "c", In: "o"}}}},
			}
			for _, def := range cases {
				_, err := Build(def)
				So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)
			}
		})
	})
}

func TestWatcher(t *testing.T) {
	Convey("测试定义文件热加载", t, func() {
		dir := t.TempDir()
		path := writeFile(dir, "people.json", peopleJSON)

		w, err := NewWatcherWithOptions(&WatcherOptions{Path: path})
		So(err, ShouldBeNil)
		defer w.Close()
		So(w.Database().Name(), ShouldEqual, "people")

		changes := make(chan *schema.Database, 4)
		w.OnChange(func(db *schema.Database) {
			changes <- db
		})
		So(w.Watch(), ShouldBeNil)
		So(w.Watch(), ShouldBeNil)

		time.Sleep(100 * time.Millisecond)
		So(os.WriteFile(path, []byte(`{"name": "renamed", "tables": []}`), 0644), ShouldBeNil)

		select {
		case db := <-changes:
			So(db.Name(), ShouldEqual, "renamed")
			So(w.Database().Name(), ShouldEqual, "renamed")
		case <-time.After(2 * time.Second):
			So("timeout waiting for reload", ShouldBeEmpty)
		}

		_, err = NewWatcherWithOptions(&WatcherOptions{Path: filepath.Join(dir, "missing.json")})
		So(err, ShouldNotBeNil)
		_, err = NewWatcherWithOptions(nil)
		So(err, ShouldNotBeNil)
	})
}
