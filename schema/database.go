package schema

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/dialect"
)

// Database 表和视图的集合，名字查找忽略大小写
type Database struct {
	name   string
	tables []*Table
	views  []*View
	byName map[string]Taew
}

func NewDatabase(name string) *Database {
	return &Database{name: name, byName: map[string]Taew{}}
}

func (db *Database) Name() string {
	return db.name
}

func (db *Database) AddTable(t *Table) error {
	if err := db.add(t); err != nil {
		return err
	}
	db.tables = append(db.tables, t)
	return nil
}

func (db *Database) AddView(v *View) error {
	if err := db.add(v); err != nil {
		return err
	}
	db.views = append(db.views, v)
	return nil
}

func (db *Database) add(t Taew) error {
	key := fold(t.TableName())
	if _, ok := db.byName[key]; ok {
		return errors.Errorf("database %s: %s %q already exists", db.name, t.Kind(), t.TableName())
	}
	db.byName[key] = t
	return nil
}

func (db *Database) Tables() []*Table {
	return append([]*Table(nil), db.tables...)
}

func (db *Database) Views() []*View {
	return append([]*View(nil), db.views...)
}

// Lookup 按名字查找表或视图
func (db *Database) Lookup(name string) (Taew, error) {
	if t, ok := db.byName[fold(name)]; ok {
		return t, nil
	}
	return nil, errors.Wrapf(ErrTableNotFound, "%q", name)
}

func (db *Database) Table(name string) (*Table, error) {
	t, err := db.Lookup(name)
	if err != nil {
		return nil, err
	}
	table, ok := t.(*Table)
	if !ok {
		return nil, errors.Wrapf(ErrTableNotFound, "%q is a %s", name, t.Kind())
	}
	return table, nil
}

// CreateSQL 先建表再建视图
func (db *Database) CreateSQL(d dialect.Dialect) string {
	var sb strings.Builder
	for _, t := range db.tables {
		sb.WriteString(t.CreateSQL(d))
	}
	for _, v := range db.views {
		sb.WriteString(v.CreateSQL(d))
	}
	return sb.String()
}
