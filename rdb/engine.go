package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/dialect"
	"github.com/hatlonely/dbstruct/log/logger"
	"github.com/hatlonely/dbstruct/schema"
	"github.com/hatlonely/dbstruct/uid"
)

// runner 执行改写后的语句，SQLStore 和 GormStore 各有一个实现
type runner interface {
	query(ctx context.Context, stmt string, args []any) (*sql.Rows, error)
	exec(ctx context.Context, stmt string, args []any) error
	// insert 执行插入并返回 LastInsertId
	insert(ctx context.Context, stmt string, args []any) (int64, error)
}

type storeOptions struct {
	logger       logger.Logger
	uuid         *uid.UUIDGenerator
	idGenerators map[string]uid.IDGenerator
}

type StoreOption func(*storeOptions)

func WithLogger(l logger.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = l
	}
}

// WithUUIDGenerator 插入时为空的 uniqueidentifier 列生成值
func WithUUIDGenerator(g *uid.UUIDGenerator) StoreOption {
	return func(o *storeOptions) {
		o.uuid = g
	}
}

// WithIDGenerator 表的 id 由 g 生成，不再依赖数据库自增
func WithIDGenerator(table string, g uid.IDGenerator) StoreOption {
	return func(o *storeOptions) {
		o.idGenerators[strings.ToLower(table)] = g
	}
}

// engine 拼接语句并实现 Store
type engine struct {
	runner       runner
	dialect      dialect.Dialect
	logger       logger.Logger
	uuid         *uid.UUIDGenerator
	idGenerators map[string]uid.IDGenerator
}

func newEngine(r runner, d dialect.Dialect, opts []StoreOption) (*engine, error) {
	options := &storeOptions{idGenerators: map[string]uid.IDGenerator{}}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = logger.NewDiscard()
	}
	if options.uuid == nil {
		g, err := uid.NewUUIDGeneratorWithOptions(nil)
		if err != nil {
			return nil, err
		}
		options.uuid = g
	}
	return &engine{
		runner:       r,
		dialect:      d,
		logger:       options.logger.With("dialect", string(d)),
		uuid:         options.uuid,
		idGenerators: options.idGenerators,
	}, nil
}

func (e *engine) Dialect() dialect.Dialect {
	return e.dialect
}

func (e *engine) rewrite(ctx context.Context, stmt string, args NamedArgs) (string, []any, error) {
	q, values, err := e.dialect.Rewrite(stmt, args.lookup)
	if err != nil {
		return "", nil, err
	}
	e.logger.DebugContext(ctx, "sql", "statement", q, "args", values)
	return q, values, nil
}

func (e *engine) InitFromID(ctx context.Context, t schema.Taew, rec Record, id int64) error {
	column := t.IDColumn()
	if column < 0 {
		return errors.Wrap(ErrNoIDColumn, t.TableName())
	}
	previous := rec.ID()
	rec.SetID(id)
	if err := e.InitFrom(ctx, t, rec, column); err != nil {
		rec.SetID(previous)
		return err
	}
	return nil
}

func (e *engine) InitFrom(ctx context.Context, t schema.Taew, rec Record, column int) error {
	if column < 0 || column >= t.ColumnCount() || t.Column(column).IsVirtual() {
		return errors.Wrapf(ErrColumnRange, "%s column %d", t.TableName(), column)
	}
	name := t.ColumnName(column)
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s=:%s", t.CommaColumns(), t.TableName(), name, name)

	args := NamedArgs{}
	rec.BindOne(args, column)
	q, values, err := e.rewrite(ctx, stmt, args)
	if err != nil {
		return err
	}

	rows, err := e.runner.query(ctx, q, values)
	if err != nil {
		return errors.Wrapf(err, "select from %s failed", t.TableName())
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return errors.Wrapf(err, "select from %s failed", t.TableName())
		}
		return errors.Wrapf(ErrRecordNotFound, "%s where %s=%v", t.TableName(), name, args[name])
	}
	if err := rec.Retrieve(rows); err != nil {
		return err
	}

	extra := 0
	for rows.Next() {
		extra++
	}
	if extra > 0 {
		e.logger.WarnContext(ctx, "additional rows in result set", "table", t.TableName(), "column", name, "count", extra)
	}
	return errors.Wrapf(rows.Err(), "select from %s failed", t.TableName())
}

func (e *engine) Save(ctx context.Context, t schema.Taew, rec Record) error {
	if rec.IsNew() {
		return e.insert(ctx, t, rec)
	}

	column := t.IDColumn()
	if column < 0 {
		return errors.Wrap(ErrNoIDColumn, t.ModifyTableName())
	}
	if t.AssignColumns() == "" {
		e.logger.WarnContext(ctx, "nothing to update", "table", t.ModifyTableName())
		return nil
	}
	id := t.ColumnName(column)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s=:%s", t.ModifyTableName(), t.AssignColumns(), id, id)

	args := NamedArgs{}
	rec.Bind(args)
	q, values, err := e.rewrite(ctx, stmt, args)
	if err != nil {
		return err
	}
	return errors.Wrapf(e.runner.exec(ctx, q, values), "update %s failed", t.ModifyTableName())
}

func (e *engine) insert(ctx context.Context, t schema.Taew, rec Record) error {
	if err := e.fillUUIDs(t, rec); err != nil {
		return err
	}

	table := t.ModifyTableName()
	column := t.IDColumn()
	if g, ok := e.idGenerators[strings.ToLower(table)]; ok && column >= 0 {
		return e.insertWithGenerator(ctx, t, rec, g)
	}

	args := NamedArgs{}
	rec.Bind(args)

	if column < 0 {
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, t.CommaColumnsNoID(), t.ColumnColumns())
		q, values, err := e.rewrite(ctx, stmt, args)
		if err != nil {
			return err
		}
		return errors.Wrapf(e.runner.exec(ctx, q, values), "insert into %s failed", table)
	}

	output, returning := e.dialect.Returning(t.ColumnName(column))
	stmt := fmt.Sprintf("INSERT INTO %s (%s)%s VALUES (%s)%s", table, t.CommaColumnsNoID(), output, t.ColumnColumns(), returning)
	q, values, err := e.rewrite(ctx, stmt, args)
	if err != nil {
		return err
	}

	var id int64
	if output != "" || returning != "" {
		id, err = e.queryID(ctx, q, values)
	} else {
		id, err = e.runner.insert(ctx, q, values)
	}
	if err != nil {
		return errors.Wrapf(err, "insert into %s failed", table)
	}
	rec.SetID(id)
	return nil
}

func (e *engine) insertWithGenerator(ctx context.Context, t schema.Taew, rec Record, g uid.IDGenerator) error {
	table := t.ModifyTableName()
	id, err := g.NextID(ctx)
	if err != nil {
		return errors.WithMessagef(err, "generate id for %s failed", table)
	}
	rec.SetID(id)

	args := NamedArgs{}
	rec.Bind(args)
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, t.CommaColumns(), parameterList(t))
	q, values, err := e.rewrite(ctx, stmt, args)
	if err == nil {
		err = errors.Wrapf(e.runner.exec(ctx, q, values), "insert into %s failed", table)
	}
	if err != nil {
		rec.SetID(IDNewInstance)
		return err
	}
	return nil
}

func (e *engine) queryID(ctx context.Context, q string, values []any) (int64, error) {
	rows, err := e.runner.query(ctx, q, values)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, errors.New("no id returned")
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

// fillUUIDs 为空的 uniqueidentifier 列生成 uuid
func (e *engine) fillUUIDs(t schema.Taew, rec Record) error {
	for _, i := range storedColumns(t) {
		if i == t.IDColumn() || t.Column(i).DataType() != schema.DataTypeUniqueIdentifier {
			continue
		}
		if v := rec.Value(i); v != nil && v != "" {
			continue
		}
		s, err := e.uuid.Generate()
		if err != nil {
			return err
		}
		if err := rec.SetValue(i, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) Remove(ctx context.Context, t schema.Taew, rec Record, column int) error {
	table := t.ModifyTableName()
	if rec.IsNew() {
		e.logger.WarnContext(ctx, "record is new or already deleted", "table", table)
		return nil
	}
	if column < 0 || column >= t.ColumnCount() || t.Column(column).IsVirtual() {
		return errors.Wrapf(ErrColumnRange, "%s column %d", table, column)
	}
	name := t.ColumnName(column)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s=:%s", table, name, name)

	args := NamedArgs{}
	rec.BindOne(args, column)
	q, values, err := e.rewrite(ctx, stmt, args)
	if err != nil {
		return err
	}
	if err := e.runner.exec(ctx, q, values); err != nil {
		return errors.Wrapf(err, "delete from %s failed", table)
	}
	rec.SetID(IDNewInstance)
	return nil
}

func (e *engine) RowsInTable(ctx context.Context, t schema.Taew) (int64, error) {
	stmt := "SELECT COUNT(*) FROM " + t.TableName()
	e.logger.DebugContext(ctx, "sql", "statement", stmt)

	rows, err := e.runner.query(ctx, stmt, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s failed", t.TableName())
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, errors.Wrapf(err, "count %s failed", t.TableName())
		}
	}
	return n, errors.Wrapf(rows.Err(), "count %s failed", t.TableName())
}

// parameterList 所有实际存储的列，包括 id
func parameterList(t schema.Taew) string {
	var params []string
	for _, i := range storedColumns(t) {
		params = append(params, ":"+t.ColumnName(i))
	}
	return strings.Join(params, ",")
}
