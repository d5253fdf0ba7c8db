// Package definition 从 yaml/toml/json/xml 文件读取表和视图的定义，并构造 schema 描述
package definition

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/schema"
)

var ErrInvalidDefinition = errors.New("invalid definition")

type DatabaseDefinition struct {
	Name   string            `cfg:"name" json:"name" yaml:"name" validate:"required"`
	Tables []TableDefinition `cfg:"tables" json:"tables" yaml:"tables" validate:"dive"`
	Views  []ViewDefinition  `cfg:"views" json:"views,omitempty" yaml:"views,omitempty" validate:"dive"`
}

type TableDefinition struct {
	Name string `cfg:"name" json:"name" yaml:"name" validate:"required"`
	// 默认使用名为 id 的列
	IDColumn   string             `cfg:"idColumn" json:"idColumn,omitempty" yaml:"idColumn,omitempty"`
	PrimaryKey string             `cfg:"primaryKey" json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	Columns    []ColumnDefinition `cfg:"columns" json:"columns" yaml:"columns" validate:"required,min=1,dive"`
}

type ColumnDefinition struct {
	Name  string `cfg:"name" json:"name" yaml:"name" validate:"required"`
	Label string `cfg:"label" json:"label,omitempty" yaml:"label,omitempty"`
	Type  string `cfg:"type" json:"type" yaml:"type" validate:"required"`
	// -1 表示没有长度
	Length        int    `cfg:"length" def:"-1" json:"length" yaml:"length"`
	AllowNulls    *bool  `cfg:"allowNulls" def:"true" json:"allowNulls" yaml:"allowNulls"`
	ReadOnly      bool   `cfg:"readOnly" json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Virtual       bool   `cfg:"virtual" json:"virtual,omitempty" yaml:"virtual,omitempty"`
	AutoIncrement bool   `cfg:"autoIncrement" json:"autoIncrement,omitempty" yaml:"autoIncrement,omitempty"`
	Format        string `cfg:"format" json:"format,omitempty" yaml:"format,omitempty"`
	Default       string `cfg:"default" json:"default,omitempty" yaml:"default,omitempty"`
	SQLType       string `cfg:"sqlType" json:"sqlType,omitempty" yaml:"sqlType,omitempty"`
	// 回调列的取值函数，通过 schema.RegisterProvider 注册
	Provider string `cfg:"provider" json:"provider,omitempty" yaml:"provider,omitempty"`
}

type ViewDefinition struct {
	Name   string           `cfg:"name" json:"name" yaml:"name" validate:"required"`
	Subset SubsetDefinition `cfg:"subset" json:"subset" yaml:"subset"`
}

// SubsetDefinition
//
//	SELECT * FROM table WHERE column<op><value>
//	SELECT * FROM table WHERE column IN (SELECT inColumn FROM in WHERE where<op><value>)
type SubsetDefinition struct {
	Table    string `cfg:"table" json:"table" yaml:"table" validate:"required"`
	Column   string `cfg:"column" json:"column" yaml:"column" validate:"required"`
	In       string `cfg:"in" json:"in,omitempty" yaml:"in,omitempty"`
	InColumn string `cfg:"inColumn" json:"inColumn,omitempty" yaml:"inColumn,omitempty" validate:"required_with=In"`
	Where    string `cfg:"where" json:"where,omitempty" yaml:"where,omitempty" validate:"required_with=In"`
	Op       string `cfg:"op" def:"=" json:"op" yaml:"op"`
	Value    string `cfg:"value" json:"value" yaml:"value"`
}

// LoadFile 按扩展名读取定义文件，.xml 使用 PileSchema 格式
func LoadFile(path string) (*DatabaseDefinition, error) {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read file %s failed", path)
		}
		def, err := ParseXML(data)
		if err != nil {
			return nil, errors.WithMessagef(err, "load %s failed", path)
		}
		return def, nil
	}

	def := &DatabaseDefinition{}
	if err := cfg.LoadFile(path, def); err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}
	return def, nil
}

// Load 从 yaml/toml/json 数据读取定义
func Load(data []byte, format cfg.Format) (*DatabaseDefinition, error) {
	def := &DatabaseDefinition{}
	if err := cfg.Unmarshal(data, format, def); err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}
	return def, nil
}

// Build 校验定义并构造表和视图
func Build(def *DatabaseDefinition) (*schema.Database, error) {
	if def == nil {
		return nil, errors.Wrap(ErrInvalidDefinition, "definition is nil")
	}
	if err := cfg.SetDefaults(def); err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}
	if err := cfg.Validate(def); err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}

	db := schema.NewDatabase(def.Name)
	for _, td := range def.Tables {
		table, err := buildTable(td)
		if err != nil {
			return nil, err
		}
		if err := db.AddTable(table); err != nil {
			return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
		}
	}
	for _, vd := range def.Views {
		source, err := db.Table(vd.Subset.Table)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidDefinition, "view %s: %v", vd.Name, err)
		}
		view, err := schema.NewView(vd.Name, source, schema.Subset{
			Column:   vd.Subset.Column,
			Op:       vd.Subset.Op,
			Value:    vd.Subset.Value,
			InTable:  vd.Subset.In,
			InColumn: vd.Subset.InColumn,
			Where:    vd.Subset.Where,
		})
		if err != nil {
			return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
		}
		if err := db.AddView(view); err != nil {
			return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
		}
	}
	return db, nil
}

func buildTable(td TableDefinition) (*schema.Table, error) {
	columns := make([]schema.Column, 0, len(td.Columns))
	for i, cd := range td.Columns {
		c, err := buildColumn(cd, i)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidDefinition, "table %s column %s: %v", td.Name, cd.Name, err)
		}
		columns = append(columns, c)
	}

	var opts []schema.TableOption
	if td.IDColumn != "" {
		opts = append(opts, schema.WithIDColumn(td.IDColumn))
	}
	if td.PrimaryKey != "" {
		opts = append(opts, schema.WithPrimaryKey(td.PrimaryKey))
	}
	table, err := schema.NewTable(td.Name, columns, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDefinition, err.Error())
	}
	return table, nil
}

func buildColumn(cd ColumnDefinition, position int) (schema.Column, error) {
	dt, err := schema.ParseDataType(cd.Type)
	if err != nil {
		return schema.Column{}, err
	}

	opts := []schema.ColumnOption{
		schema.WithLabel(cd.Label),
		schema.WithLength(cd.Length),
		schema.WithReadOnly(cd.ReadOnly),
		schema.WithFormat(cd.Format),
		schema.WithDefault(cd.Default),
		schema.WithSQLType(cd.SQLType),
	}
	if cd.AllowNulls != nil {
		opts = append(opts, schema.WithAllowNulls(*cd.AllowNulls))
	}
	if cd.Virtual {
		opts = append(opts, schema.WithVirtual())
	}
	if cd.AutoIncrement {
		opts = append(opts, schema.WithAutoIncrement())
	}
	c := schema.NewColumn(cd.Name, dt, position, opts...)

	if cd.Provider != "" {
		if dt != schema.DataTypeCallback {
			return schema.Column{}, errors.Errorf("provider %q on a %s column", cd.Provider, dt)
		}
		p, err := schema.LookupProvider(cd.Provider)
		if err != nil {
			return schema.Column{}, err
		}
		c.SetProvider(p)
	}
	return c, nil
}
