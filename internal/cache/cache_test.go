package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourplan/internal/opt"
)

func matrix(t *testing.T, rows [][]float64) *opt.CostMatrix {
	t.Helper()
	m, err := opt.NewCostMatrix(rows)
	require.NoError(t, err)
	return m
}

func TestResultKey(t *testing.T) {
	a := matrix(t, [][]float64{{0, 1, 2}, {1, 0, opt.Unreachable}, {2, 3, 0}})
	b := matrix(t, [][]float64{{0, 1, 2}, {1, 0, 4}, {2, 3, 0}})
	c := opt.RouteConstraint{Start: 0, End: 2}
	opts := opt.Options{Budget: opt.PassBudget(5), Restarts: 2, Seed: 1}

	ka, ok := ResultKey(a, c, opts)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(ka, keyPrefix+":"))

	again, _ := ResultKey(a, c, opts)
	assert.Equal(t, ka, again)

	kb, _ := ResultKey(b, c, opts)
	assert.NotEqual(t, ka, kb, "unreachable entries are part of the key")

	other := opts
	other.Seed = 2
	ks, _ := ResultKey(a, c, other)
	assert.NotEqual(t, ka, ks)

	kc, _ := ResultKey(a, opt.RouteConstraint{Start: 2, End: 0}, opts)
	assert.NotEqual(t, ka, kc)

	_, ok = ResultKey(a, c, opt.Options{Budget: opt.TimeBudget(time.Second)})
	assert.False(t, ok, "time-bounded runs are not cached")
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry expired")

	require.NoError(t, c.Set(ctx, "forever", []byte("x"), 0))
	now = now.Add(24 * time.Hour)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "forever"))
	_, ok, _ = c.Get(ctx, "forever")
	assert.False(t, ok)
}

func TestNull(t *testing.T) {
	var c Cache = Null{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set; skipping redis test")
	}
	ctx := context.Background()
	c, err := NewRedis(url)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	key := keyPrefix + ":test:" + t.Name()
	require.NoError(t, c.Set(ctx, key, []byte("v"), time.Minute))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, key))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
