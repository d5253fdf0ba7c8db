package dialect

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Dialect
	}{
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"sqlite3", SQLite},
		{"pgx", Postgres},
		{"PostgreSQL", Postgres},
		{"mssql", SQLServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	_, err := Parse("oracle")
	assert.True(t, errors.Is(err, ErrUnknownDialect))
}

func TestQuoteAndPlaceholder(t *testing.T) {
	assert.Equal(t, "`na``me`", MySQL.Quote("na`me"))
	assert.Equal(t, `"na""me"`, Postgres.Quote(`na"me`))
	assert.Equal(t, "[na]]me]", SQLServer.Quote("na]me"))

	assert.Equal(t, "?", SQLite.Placeholder(3))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, "@p3", SQLServer.Placeholder(3))

	assert.Equal(t, "sqlite3", SQLite.Driver())
	assert.Equal(t, "pgx", Postgres.Driver())
	assert.Equal(t, "mysql", MySQL.Driver())
	assert.Equal(t, "AUTO_INCREMENT", MySQL.AutoIncrement())
	assert.Equal(t, "IDENTITY(1,1)", SQLServer.AutoIncrement())
	assert.Empty(t, Postgres.AutoIncrement())
	assert.True(t, MySQL.LastInsertID())
	assert.False(t, Postgres.LastInsertID())
}

func TestRewrite(t *testing.T) {
	values := map[string]any{"id": 7, "name": "bob"}
	lookup := func(name string) (any, bool) {
		v, ok := values[name]
		return v, ok
	}

	stmt := "UPDATE person SET name=:name WHERE id = :id OR parent = :id"

	t.Run("mysql", func(t *testing.T) {
		sql, args, err := MySQL.Rewrite(stmt, lookup)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE person SET name=? WHERE id = ? OR parent = ?", sql)
		assert.Equal(t, []any{"bob", 7, 7}, args)
	})

	t.Run("postgres reuses numbered placeholders", func(t *testing.T) {
		sql, args, err := Postgres.Rewrite(stmt, lookup)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE person SET name=$1 WHERE id = $2 OR parent = $2", sql)
		assert.Equal(t, []any{"bob", 7}, args)
	})

	t.Run("sqlserver", func(t *testing.T) {
		sql, args, err := SQLServer.Rewrite("SELECT [a:b] FROM t WHERE id=:id", lookup)
		require.NoError(t, err)
		assert.Equal(t, "SELECT [a:b] FROM t WHERE id=@p1", sql)
		assert.Equal(t, []any{7}, args)
	})

	t.Run("quoted text and casts are kept", func(t *testing.T) {
		sql, args, err := Postgres.Rewrite("SELECT ':name', id::text FROM t WHERE id=:id", lookup)
		require.NoError(t, err)
		assert.Equal(t, "SELECT ':name', id::text FROM t WHERE id=$1", sql)
		assert.Equal(t, []any{7}, args)
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, _, err := MySQL.Rewrite("SELECT * FROM t WHERE x=:x", lookup)
		assert.True(t, errors.Is(err, ErrMissingParameter))
	})

	t.Run("non-ascii names", func(t *testing.T) {
		sql, args, err := Postgres.Rewrite("INSERT INTO 人员 (名前,年齢) VALUES (:名前,:年齢)", func(name string) (any, bool) {
			v, ok := map[string]any{"名前": "太郎", "年齢": 20}[name]
			return v, ok
		})
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO 人员 (名前,年齢) VALUES ($1,$2)", sql)
		assert.Equal(t, []any{"太郎", 20}, args)
	})
}

func TestIsIdentifier(t *testing.T) {
	for _, name := range []string{"id", "_tmp", "first_name", "名前", "col2", "Größe"} {
		assert.True(t, IsIdentifier(name), name)
	}
	for _, name := range []string{"", "first-name", "first name", "2nd", "a.b", "a:b"} {
		assert.False(t, IsIdentifier(name), name)
	}
}
