package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type poolConfig struct {
	MaxConns    int           `def:"10"`
	MaxIdle     int           `def:"2"`
	IdleTimeout time.Duration `def:"30s"`
	Ratio       float64       `def:"0.75"`
	Ping        bool          `def:"true"`
}

type columnConfig struct {
	Name   string
	Length int  `def:"-1"`
	Nulls  *bool `def:"true"`
}

type storeConfig struct {
	Driver   string      `def:"sqlite3"`
	Tags     []string    `def:"a,b,c"`
	Ports    []int       `def:"1,2,3"`
	Since    time.Time   `def:"2023-01-01T00:00:00Z"`
	Pool     poolConfig
	Cache    *poolConfig `def:""`
	Optional *poolConfig
	Columns  []columnConfig
}

func TestSetDefaults_BasicTypes(t *testing.T) {
	c := &storeConfig{}
	assert.NoError(t, SetDefaults(c))

	assert.Equal(t, "sqlite3", c.Driver)
	assert.Equal(t, []string{"a", "b", "c"}, c.Tags)
	assert.Equal(t, []int{1, 2, 3}, c.Ports)
	since, _ := time.Parse(time.RFC3339, "2023-01-01T00:00:00Z")
	assert.Equal(t, since, c.Since)
}

func TestSetDefaults_NestedStruct(t *testing.T) {
	c := &storeConfig{}
	assert.NoError(t, SetDefaults(c))

	assert.Equal(t, 10, c.Pool.MaxConns)
	assert.Equal(t, 2, c.Pool.MaxIdle)
	assert.Equal(t, 30*time.Second, c.Pool.IdleTimeout)
	assert.Equal(t, 0.75, c.Pool.Ratio)
	assert.True(t, c.Pool.Ping)

	// 有 def 标签的指针会被分配，没有的保持 nil
	assert.NotNil(t, c.Cache)
	assert.Equal(t, 10, c.Cache.MaxConns)
	assert.Nil(t, c.Optional)
}

func TestSetDefaults_StructSlice(t *testing.T) {
	no := false
	c := &storeConfig{Columns: []columnConfig{{Name: "id"}, {Name: "name", Length: 64, Nulls: &no}}}
	assert.NoError(t, SetDefaults(c))

	assert.Equal(t, -1, c.Columns[0].Length)
	assert.True(t, *c.Columns[0].Nulls)
	assert.Equal(t, 64, c.Columns[1].Length)
	assert.False(t, *c.Columns[1].Nulls)
}

func TestSetDefaults_NonZeroValues(t *testing.T) {
	c := &storeConfig{Driver: "mysql", Pool: poolConfig{MaxConns: 50}}
	assert.NoError(t, SetDefaults(c))

	assert.Equal(t, "mysql", c.Driver)
	assert.Equal(t, 50, c.Pool.MaxConns)
	assert.Equal(t, 2, c.Pool.MaxIdle)
}

func TestSetDefaults_InvalidInput(t *testing.T) {
	assert.Error(t, SetDefaults(nil))
	assert.Error(t, SetDefaults(storeConfig{}))

	var nilConfig *storeConfig
	assert.Error(t, SetDefaults(nilConfig))

	type badConfig struct {
		N int `def:"abc"`
	}
	assert.Error(t, SetDefaults(&badConfig{}))
}

func TestSetDefaults_TimeFormats(t *testing.T) {
	type timeConfig struct {
		Date      time.Time `def:"2023-01-01"`
		DateTime  time.Time `def:"2023-01-01 15:04:05"`
		Unix      time.Time `def:"1672531200"`
		UnixFloat time.Time `def:"1672531200.5"`
	}

	c := &timeConfig{}
	assert.NoError(t, SetDefaults(c))

	date, _ := time.Parse("2006-01-02", "2023-01-01")
	assert.Equal(t, date, c.Date)
	dateTime, _ := time.Parse("2006-01-02 15:04:05", "2023-01-01 15:04:05")
	assert.Equal(t, dateTime, c.DateTime)
	assert.Equal(t, time.Unix(1672531200, 0), c.Unix)
	assert.Equal(t, time.Unix(1672531200, 500000000), c.UnixFloat)
}
