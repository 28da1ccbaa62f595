package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type defPoolOptions struct {
	MaxConns int           `def:"10"`
	Lifetime time.Duration `def:"5m"`
}

type defCacheOptions struct {
	Endpoints []string `def:"a:6379, b:6379"`
	Size      uint32   `def:"0x400"`
}

type defOptions struct {
	Name     string    `def:"rdbx"`
	Enabled  bool      `def:"true"`
	Ratio    float64   `def:"0.5"`
	Since    time.Time `def:"2023-01-01T00:00:00Z"`
	Comment  *string   `def:"none"`
	Weights  []int     `def:"1,2,3"`
	Pool     defPoolOptions
	Cache    *defCacheOptions `def:""`
	Optional *defPoolOptions
	Skipped  string `cfg:"-" def:"skipped"`
}

func TestSetDefaults(t *testing.T) {
	opts := &defOptions{}
	require.NoError(t, SetDefaults(opts))

	assert.Equal(t, "rdbx", opts.Name)
	assert.True(t, opts.Enabled)
	assert.Equal(t, 0.5, opts.Ratio)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), opts.Since)
	require.NotNil(t, opts.Comment)
	assert.Equal(t, "none", *opts.Comment)
	assert.Equal(t, []int{1, 2, 3}, opts.Weights)
	assert.Equal(t, 10, opts.Pool.MaxConns)
	assert.Equal(t, 5*time.Minute, opts.Pool.Lifetime)

	require.NotNil(t, opts.Cache)
	assert.Equal(t, []string{"a:6379", "b:6379"}, opts.Cache.Endpoints)
	assert.Equal(t, uint32(1024), opts.Cache.Size)

	// 没有 def 标签的 nil 指针保持 nil
	assert.Nil(t, opts.Optional)
	assert.Empty(t, opts.Skipped)
}

func TestSetDefaultsKeepsValues(t *testing.T) {
	opts := &defOptions{Name: "custom", Optional: &defPoolOptions{MaxConns: 3}}
	require.NoError(t, SetDefaults(opts))

	assert.Equal(t, "custom", opts.Name)
	assert.Equal(t, 3, opts.Optional.MaxConns)
	assert.Equal(t, 5*time.Minute, opts.Optional.Lifetime)
}

func TestSetDefaultsErrors(t *testing.T) {
	assert.Error(t, SetDefaults(nil))
	assert.Error(t, SetDefaults(defOptions{}))
	var nilOpts *defOptions
	assert.Error(t, SetDefaults(nilOpts))

	type badInt struct {
		N int8 `def:"1000"`
	}
	assert.ErrorContains(t, SetDefaults(&badInt{}), "field N")

	type badDuration struct {
		D time.Duration `def:"soon"`
	}
	assert.Error(t, SetDefaults(&badDuration{}))

	type badMap struct {
		M map[string]int `def:"a=1"`
	}
	assert.Error(t, SetDefaults(&badMap{}))
}
