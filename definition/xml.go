package definition

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// ParseXML 读取 PileSchema 格式的定义
//
//	<database name="people">
//	  <tables>
//	    <table name="person">
//	      <columns>
//	        <column name="id" allowNulls="false"><integer><identity/></integer></column>
//	        <column name="name" label="Name"><varchar length="64" default="''"/></column>
//	      </columns>
//	      <primaryKey><key><column name="id"/></key></primaryKey>
//	    </table>
//	  </tables>
//	  <views>
//	    <view name="adults"><subset name1="person" col1="age" constraint="&gt;=" value="18"/></view>
//	  </views>
//	</database>
//
// 列的第一个子元素是数据类型，缺少 allowNulls 时不允许 NULL
func ParseXML(data []byte) (*DatabaseDefinition, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}
	root := doc.SelectElement("database")
	if root == nil {
		return nil, errors.Wrap(ErrInvalidDefinition, "missing database element")
	}

	def := &DatabaseDefinition{Name: root.SelectAttrValue("name", "")}
	if tables := root.SelectElement("tables"); tables != nil {
		for _, te := range tables.ChildElements() {
			td, err := parseTable(te)
			if err != nil {
				return nil, err
			}
			def.Tables = append(def.Tables, td)
		}
	}
	if views := root.SelectElement("views"); views != nil {
		for _, ve := range views.ChildElements() {
			vd, err := parseView(ve)
			if err != nil {
				return nil, err
			}
			def.Views = append(def.Views, vd)
		}
	}
	return def, nil
}

func parseTable(te *etree.Element) (TableDefinition, error) {
	td := TableDefinition{Name: te.SelectAttrValue("name", "")}

	columns := te.SelectElement("columns")
	if columns == nil {
		return td, errors.Wrapf(ErrInvalidDefinition, "table %s has no columns", td.Name)
	}
	for _, ce := range columns.ChildElements() {
		cd, err := parseColumn(ce)
		if err != nil {
			return td, errors.WithMessagef(err, "table %s", td.Name)
		}
		td.Columns = append(td.Columns, cd)
	}

	if pk := te.FindElement("primaryKey/key/column"); pk != nil {
		td.PrimaryKey = pk.SelectAttrValue("name", "")
	}
	return td, nil
}

func parseColumn(ce *etree.Element) (ColumnDefinition, error) {
	name := ce.SelectAttrValue("name", "")
	children := ce.ChildElements()
	if len(children) == 0 {
		return ColumnDefinition{}, errors.Wrapf(ErrInvalidDefinition, "column %s has no data type", name)
	}
	dt := children[0]

	allowNulls := xmlBool(ce.SelectAttrValue("allowNulls", ""))
	cd := ColumnDefinition{
		Name:          name,
		Label:         ce.SelectAttrValue("label", ""),
		Type:          dt.Tag,
		Length:        -1,
		AllowNulls:    &allowNulls,
		ReadOnly:      xmlBool(ce.SelectAttrValue("readOnly", "")),
		Virtual:       xmlBool(ce.SelectAttrValue("virtual", "")),
		Format:        ce.SelectAttrValue("format", ""),
		Provider:      ce.SelectAttrValue("provider", ""),
		SQLType:       dt.SelectAttrValue("sqltype", ""),
		AutoIncrement: dt.SelectElement("identity") != nil,
	}
	if s := dt.SelectAttrValue("length", ""); s != "" {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return cd, errors.Wrapf(ErrInvalidDefinition, "column %s length %q", name, s)
		}
		cd.Length = n
	}
	cd.Default = dt.SelectAttrValue("default", "")
	if cd.Default == "" {
		cd.Default = dt.SelectAttrValue("defaultExpression", "")
	}
	return cd, nil
}

func parseView(ve *etree.Element) (ViewDefinition, error) {
	vd := ViewDefinition{Name: ve.SelectAttrValue("name", "")}
	subset := ve.SelectElement("subset")
	if subset == nil {
		return vd, errors.Wrapf(ErrInvalidDefinition, "view %s: unknown view type", vd.Name)
	}
	vd.Subset = SubsetDefinition{
		Table:    subset.SelectAttrValue("name1", ""),
		Column:   subset.SelectAttrValue("col1", ""),
		In:       subset.SelectAttrValue("in", ""),
		InColumn: subset.SelectAttrValue("incol", ""),
		Where:    subset.SelectAttrValue("where", ""),
		Op:       subset.SelectAttrValue("constraint", ""),
		Value:    subset.SelectAttrValue("value", ""),
	}
	return vd, nil
}

// xmlBool yes/true/t/1 为真，其它都为假
func xmlBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "t", "1":
		return true
	}
	return false
}
