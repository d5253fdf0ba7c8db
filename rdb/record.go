package rdb

import (
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/schema"
)

// MapRecord 按列下标保存值的通用记录，值在写入时按列类型转换
type MapRecord struct {
	taew   schema.Taew
	values []any
}

func NewMapRecord(t schema.Taew) *MapRecord {
	r := &MapRecord{
		taew:   t,
		values: make([]any, t.ColumnCount()),
	}
	r.SetID(IDNewInstance)
	return r
}

func (r *MapRecord) Taew() schema.Taew {
	return r.taew
}

// ID id 列不是整数或者没有 id 列时返回 IDNewInstance
func (r *MapRecord) ID() int64 {
	i := r.taew.IDColumn()
	if i < 0 {
		return IDNewInstance
	}
	if id, ok := r.values[i].(int64); ok {
		return id
	}
	return IDNewInstance
}

func (r *MapRecord) SetID(id int64) {
	if i := r.taew.IDColumn(); i >= 0 {
		r.values[i] = id
	}
}

func (r *MapRecord) IsNew() bool {
	return r.ID() < 0
}

func (r *MapRecord) Value(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

func (r *MapRecord) SetValue(i int, value any) error {
	if i < 0 || i >= len(r.values) {
		return errors.Wrapf(ErrColumnRange, "%d of %d", i, len(r.values))
	}
	v, err := r.taew.Column(i).Coerce(value)
	if err != nil {
		return err
	}
	r.values[i] = v
	return nil
}

func (r *MapRecord) BindOne(b Binder, i int) {
	b.BindValue(r.taew.ColumnName(i), r.Value(i))
}

func (r *MapRecord) Bind(b Binder) {
	for _, i := range storedColumns(r.taew) {
		r.BindOne(b, i)
	}
}

func (r *MapRecord) Retrieve(rows Scanner) error {
	return retrieve(r, r.taew, rows)
}

func (r *MapRecord) RetrieveRow(row []any) error {
	return retrieveRow(r, r.taew, row)
}

func (r *MapRecord) RetrieveMap(m map[string]any) error {
	return retrieveMap(r, r.taew, m)
}

func (r *MapRecord) ToMap() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, v := range r.values {
		m[r.taew.ColumnName(i)] = v
	}
	return m
}

// Row 供回调列使用
func (r *MapRecord) Row() schema.Row {
	return schema.Row(r.ToMap())
}

func retrieve(rec Record, t schema.Taew, rows Scanner) error {
	n := len(storedColumns(t))
	row := make([]any, n)
	dest := make([]any, n)
	for i := range row {
		dest[i] = &row[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return errors.Wrapf(err, "scan %s failed", t.TableName())
	}
	return rec.RetrieveRow(row)
}

func retrieveRow(rec Record, t schema.Taew, row []any) error {
	indexes := storedColumns(t)
	if len(row) != len(indexes) {
		return errors.Errorf("%s has %d stored columns, got %d values", t.TableName(), len(indexes), len(row))
	}
	for k, i := range indexes {
		if err := rec.SetValue(i, row[k]); err != nil {
			return errors.WithMessagef(err, "retrieve %s.%s failed", t.TableName(), t.ColumnName(i))
		}
	}
	return nil
}

func retrieveMap(rec Record, t schema.Taew, m map[string]any) error {
	for name, v := range m {
		i := t.ColumnIndex(name)
		if i < 0 {
			continue
		}
		if err := rec.SetValue(i, v); err != nil {
			return errors.WithMessagef(err, "retrieve %s.%s failed", t.TableName(), name)
		}
	}
	return nil
}
