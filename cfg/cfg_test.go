package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceOptions struct {
	Driver   string        `cfg:"driver" def:"sqlite3" validate:"oneof=mysql sqlite3 pgx sqlserver"`
	Host     string        `cfg:"host" def:"localhost"`
	Port     int           `cfg:"port"`
	Timeout  time.Duration `cfg:"timeout" def:"5s"`
	ReadOnly bool          `cfg:"readOnly"`
	Tables   []tableOptions `cfg:"tables"`
	Extra    any           `cfg:"extra"`
}

type tableOptions struct {
	Name   string `cfg:"name" validate:"required"`
	Length int    `cfg:"length" def:"-1"`
}

func TestUnmarshalFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{
			name:   "yaml",
			format: FormatYAML,
			data: `
driver: mysql
port: 3306
timeout: 2s
readOnly: true
tables:
  - name: person
  - name: address
    length: 32
extra:
  type: ConsoleWriter
`,
		},
		{
			name:   "toml",
			format: FormatTOML,
			data: `
driver = "mysql"
port = 3306
timeout = "2s"
readOnly = true

[[tables]]
name = "person"

[[tables]]
name = "address"
length = 32

[extra]
type = "ConsoleWriter"
`,
		},
		{
			name:   "json",
			format: FormatJSON,
			data: `{"driver": "mysql", "port": 3306, "timeout": "2s", "readOnly": true,
"tables": [{"name": "person"}, {"name": "address", "length": 32}],
"extra": {"type": "ConsoleWriter"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts sourceOptions
			require.NoError(t, Unmarshal([]byte(tt.data), tt.format, &opts))

			assert.Equal(t, "mysql", opts.Driver)
			assert.Equal(t, "localhost", opts.Host)
			assert.Equal(t, 3306, opts.Port)
			assert.Equal(t, 2*time.Second, opts.Timeout)
			assert.True(t, opts.ReadOnly)
			require.Len(t, opts.Tables, 2)
			assert.Equal(t, "person", opts.Tables[0].Name)
			assert.Equal(t, -1, opts.Tables[0].Length)
			assert.Equal(t, 32, opts.Tables[1].Length)

			node, ok := opts.Extra.(*Node)
			require.True(t, ok)
			var extra struct {
				Type string `cfg:"type"`
			}
			require.NoError(t, node.ConvertTo(&extra))
			assert.Equal(t, "ConsoleWriter", extra.Type)
		})
	}
}

func TestUnmarshalINI(t *testing.T) {
	data := `
driver = pgx
port = 5432
readOnly = true

[extra.pool]
size = 4
`
	var opts sourceOptions
	require.NoError(t, Unmarshal([]byte(data), FormatINI, &opts))
	assert.Equal(t, "pgx", opts.Driver)
	assert.Equal(t, 5432, opts.Port)
	assert.True(t, opts.ReadOnly)

	node := opts.Extra.(*Node)
	assert.Equal(t, int64(4), node.Sub("pool.size").Data())
}

func TestUnmarshalValidation(t *testing.T) {
	var opts sourceOptions
	err := Unmarshal([]byte(`driver: oracle`), FormatYAML, &opts)
	assert.Error(t, err)

	err = Unmarshal([]byte(`tables: [{length: 3}]`), FormatYAML, &opts)
	assert.Error(t, err)

	err = Unmarshal([]byte(`port: abc`), FormatYAML, &opts)
	assert.Error(t, err)

	_, err = Decode([]byte(`{`), FormatJSON)
	assert.Error(t, err)
	_, err = Decode([]byte(`x`), Format("xml"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.yml")
	require.NoError(t, os.WriteFile(path, []byte("driver: sqlserver\nport: \"1433\"\n"), 0644))

	var opts sourceOptions
	require.NoError(t, LoadFile(path, &opts))
	assert.Equal(t, "sqlserver", opts.Driver)
	assert.Equal(t, 1433, opts.Port)

	assert.Error(t, LoadFile(filepath.Join(dir, "source.xml"), &opts))
	assert.Error(t, LoadFile(filepath.Join(dir, "missing.yaml"), &opts))

	format, err := FormatOf("a/b/c.TOML")
	assert.NoError(t, err)
	assert.Equal(t, FormatTOML, format)
}

func TestUnmarshalTime(t *testing.T) {
	type window struct {
		Since time.Time `cfg:"since"`
		Until time.Time `cfg:"until"`
	}

	var w window
	require.NoError(t, Unmarshal([]byte(`{"since": "2023-01-02T03:04:05Z", "until": "2023-02-01"}`), FormatJSON, &w))
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), w.Since)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), w.Until)

	require.NoError(t, Unmarshal([]byte("since: \"2023-01-02 03:04:05\"\n"), FormatYAML, &w))
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), w.Since)

	assert.Error(t, Unmarshal([]byte(`{"since": "yesterday"}`), FormatJSON, &w))
	assert.Error(t, Unmarshal([]byte(`{"since": true}`), FormatJSON, &w))
}
