package schema

import (
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/dialect"
)

// Subset 视图从源表中选出的行
//
//	SELECT * FROM source WHERE column<op><value>
//	SELECT * FROM source WHERE column IN (SELECT inColumn FROM inTable WHERE where<op><value>)
type Subset struct {
	Column   string
	Op       string
	Value    string
	InTable  string
	InColumn string
	Where    string
}

// View 源表的一个子集，列与源表相同，写入时落到源表
type View struct {
	*columnSet
	name   string
	source *Table
	subset Subset
}

func NewView(name string, source *Table, subset Subset) (*View, error) {
	if name == "" {
		return nil, errors.New("view name is required")
	}
	if !dialect.IsIdentifier(name) {
		return nil, errors.Wrapf(ErrInvalidName, "view %q", name)
	}
	if source == nil {
		return nil, errors.Wrapf(ErrTableNotFound, "view %s has no source table", name)
	}
	if subset.Op == "" {
		subset.Op = "="
	}
	if subset.InTable == "" {
		if !source.HasColumn(subset.Column) {
			return nil, errors.Wrapf(ErrColumnNotFound, "view %s: %s.%s", name, source.name, subset.Column)
		}
	} else if subset.Column == "" || subset.InColumn == "" || subset.Where == "" {
		return nil, errors.Errorf("view %s: IN subset needs column, inColumn and where", name)
	}
	return &View{
		columnSet: source.columnSet,
		name:      name,
		source:    source,
		subset:    subset,
	}, nil
}

func (v *View) Kind() Kind {
	return KindView
}

func (v *View) TableName() string {
	return v.name
}

func (v *View) ModifyTableName() string {
	return v.source.name
}

func (v *View) Source() *Table {
	return v.source
}

func (v *View) Subset() Subset {
	return v.subset
}
