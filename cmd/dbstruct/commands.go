package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/definition"
	"github.com/hatlonely/dbstruct/dialect"
	"github.com/hatlonely/dbstruct/rdb"
	"github.com/hatlonely/dbstruct/schema"
)

var (
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
)

func loadDatabase(path string) (*schema.Database, error) {
	def, err := definition.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return definition.Build(def)
}

type ValidateCmd struct {
	File string `arg:"" help:"Definition file (.yaml, .toml, .json or .xml)" type:"existingfile"`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	db, err := loadDatabase(cmd.File)
	if err != nil {
		return err
	}
	green.Fprintf(ctx.Out, "%s: database %s is valid, %d tables, %d views\n", cmd.File, db.Name(), len(db.Tables()), len(db.Views()))
	return nil
}

type SQLCmd struct {
	File    string `arg:"" help:"Definition file" type:"existingfile"`
	Dialect string `help:"mysql, sqlite, postgres or sqlserver" default:"mysql" short:"d"`
	Output  string `help:"Write to file instead of stdout" short:"o"`
}

func (cmd *SQLCmd) Run(ctx *Context) error {
	d, err := dialect.Parse(cmd.Dialect)
	if err != nil {
		return err
	}
	db, err := loadDatabase(cmd.File)
	if err != nil {
		return err
	}

	stmt := db.CreateSQL(d)
	if cmd.Output == "" {
		fmt.Fprint(ctx.Out, stmt)
		return nil
	}
	if err := os.WriteFile(cmd.Output, []byte(stmt), 0644); err != nil {
		return errors.Wrapf(err, "write %s failed", cmd.Output)
	}
	if ctx.Verbose {
		green.Fprintf(ctx.Out, "Generated: %s\n", cmd.Output)
	}
	return nil
}

type DescribeCmd struct {
	File  string `arg:"" help:"Definition file" type:"existingfile"`
	Table string `help:"Only describe this table or view" short:"t"`
}

func (cmd *DescribeCmd) Run(ctx *Context) error {
	db, err := loadDatabase(cmd.File)
	if err != nil {
		return err
	}

	var taews []schema.Taew
	if cmd.Table != "" {
		t, err := db.Lookup(cmd.Table)
		if err != nil {
			return err
		}
		taews = append(taews, t)
	} else {
		for _, t := range db.Tables() {
			taews = append(taews, t)
		}
		for _, v := range db.Views() {
			taews = append(taews, v)
		}
	}

	for _, t := range taews {
		cyan.Fprintf(ctx.Out, "%s %s", t.Kind(), t.TableName())
		if t.Kind() == schema.KindView {
			cyan.Fprintf(ctx.Out, " (on %s)", t.ModifyTableName())
		}
		fmt.Fprintln(ctx.Out)

		w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  #\tNAME\tLABEL\tTYPE\tLENGTH\tNULL\tFLAGS")
		for i, c := range t.Columns() {
			length := "-"
			if c.Length() >= 0 {
				length = fmt.Sprint(c.Length())
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\t%t\t%s\n", i, c.Name(), c.Label(), c.DataType(), length, c.AllowNulls(), columnFlags(t, i))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func columnFlags(t schema.Taew, i int) string {
	c := t.Column(i)
	var flags []string
	if i == t.IDColumn() {
		flags = append(flags, "id")
	}
	if c.AutoIncrement() {
		flags = append(flags, "autoincrement")
	}
	if c.ReadOnly() {
		flags = append(flags, "readonly")
	}
	if c.IsVirtual() {
		flags = append(flags, "virtual")
	}
	if c.RawFormat() != "" {
		flags = append(flags, "format="+c.RawFormat())
	}
	return strings.Join(flags, ",")
}

type RenderCmd struct {
	File   string   `arg:"" help:"Definition file" type:"existingfile"`
	Values []string `arg:"" help:"Values to render"`
	Table  string   `help:"Table or view" required:"" short:"t"`
	Column string   `help:"Column name" required:"" short:"c"`
	Format string   `help:"Override the column format"`
	Locale string   `help:"Locale for dates and times: en, ja, zh, ko or hu, e.g. ja-JP"`
}

func (cmd *RenderCmd) Run(ctx *Context) error {
	db, err := loadDatabase(cmd.File)
	if err != nil {
		return err
	}
	t, err := db.Lookup(cmd.Table)
	if err != nil {
		return err
	}
	i := t.ColumnIndex(cmd.Column)
	if i < 0 {
		return errors.Wrapf(schema.ErrColumnNotFound, "%s.%s", cmd.Table, cmd.Column)
	}

	c := t.Column(i)
	if cmd.Format != "" {
		c = schema.NewColumn(c.Name(), c.DataType(), c.Position(),
			schema.WithLength(c.Length()),
			schema.WithFormat(cmd.Format),
			schema.WithLogger(ctx.Logger),
		)
	}
	loc := schema.DefaultLocale
	if cmd.Locale != "" {
		var ok bool
		if loc, ok = schema.LookupLocale(cmd.Locale); !ok {
			yellow.Fprintf(ctx.Out, "locale %s is not supported, using %s\n", cmd.Locale, loc.Tag)
		}
	}

	for _, raw := range cmd.Values {
		v, err := c.Coerce(raw)
		if err != nil {
			yellow.Fprintf(ctx.Out, "%s\t%v\n", raw, err)
			continue
		}
		fmt.Fprintf(ctx.Out, "%s\t%v\n", raw, c.RenderLocale(loc, v))
	}
	return nil
}

type CountCmd struct {
	File    string        `arg:"" help:"Definition file" type:"existingfile"`
	Table   string        `help:"Table or view" required:"" short:"t"`
	Driver  string        `help:"mysql, sqlite3, pgx or sqlserver" default:"sqlite3"`
	DSN     string        `help:"Data source name" required:""`
	Timeout time.Duration `help:"Query timeout" default:"30s"`
}

func (cmd *CountCmd) Run(ctx *Context) error {
	db, err := loadDatabase(cmd.File)
	if err != nil {
		return err
	}
	t, err := db.Lookup(cmd.Table)
	if err != nil {
		return err
	}

	store, err := rdb.NewSQLStoreWithOptions(&rdb.StoreOptions{
		DB: rdb.Options{Driver: cmd.Driver, DSN: cmd.DSN},
	})
	if err != nil {
		return err
	}
	defer store.Close()

	c, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()
	n, err := store.RowsInTable(c, t)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s\t%d\n", t.TableName(), n)
	return nil
}
