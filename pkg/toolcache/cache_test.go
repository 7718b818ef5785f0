package toolcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/harun/toolhub/pkg/storage"
	"github.com/harun/toolhub/pkg/tool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint("search", map[string]interface{}{
		"query": "go",
		"opts":  map[string]interface{}{"limit": 10, "sort": "asc"},
	}, "run1", "org1")
	require.NoError(t, err)
	assert.Len(t, a, 64)

	t.Run("key order does not matter", func(t *testing.T) {
		b, err := Fingerprint("search", map[string]interface{}{
			"opts":  map[string]interface{}{"sort": "asc", "limit": 10.0},
			"query": "go",
		}, "run1", "org1")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("identity fields change the key", func(t *testing.T) {
		args := map[string]interface{}{"query": "go", "opts": map[string]interface{}{"limit": 10, "sort": "asc"}}
		for _, tc := range []struct{ tool, run, org string }{
			{"other", "run1", "org1"},
			{"search", "run2", "org1"},
			{"search", "run1", "org2"},
		} {
			fp, err := Fingerprint(tc.tool, args, tc.run, tc.org)
			require.NoError(t, err)
			assert.NotEqual(t, a, fp)
		}
	})

	t.Run("unencodable arguments fail", func(t *testing.T) {
		_, err := Fingerprint("search", map[string]interface{}{"fn": func() {}}, "run1", "org1")
		assert.Error(t, err)
	})
}

func TestCanonicalJSON(t *testing.T) {
	out, err := CanonicalJSON(map[string]interface{}{"b": 1, "a": []interface{}{map[string]interface{}{"z": true, "y": nil}}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[{"y":null,"z":true}],"b":1}`, string(out))

	out, err = CanonicalJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

// runCacheContract exercises behaviour every backend shares
func runCacheContract(t *testing.T, cache Cache) {
	ctx := context.Background()
	args := map[string]interface{}{"msg": "hi", "n": 1}

	entry, err := cache.Find(ctx, "echo", args, "run1", "org1")
	require.NoError(t, err)
	assert.Nil(t, entry, "empty cache must miss")

	result := tool.Success(map[string]interface{}{"msg": "hi"}, tool.ResourceRef{Type: "file", ID: "out.txt"})
	require.NoError(t, cache.Store(ctx, "echo", args, result, "run1", "org1", time.Minute))

	entry, err = cache.Find(ctx, "echo", map[string]interface{}{"n": 1, "msg": "hi"}, "run1", "org1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "echo", entry.ToolName)
	assert.Equal(t, "org1", entry.OrgID)
	assert.Equal(t, "run1", entry.RunID)
	assert.True(t, entry.Success)

	res, err := entry.Result()
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Metadata.Cached)
	assert.Equal(t, map[string]interface{}{"msg": "hi"}, res.Data)
	assert.Equal(t, []tool.ResourceRef{{Type: "file", ID: "out.txt"}}, res.Metadata.ResourcesCreated)

	entry, err = cache.Find(ctx, "echo", args, "run2", "org1")
	require.NoError(t, err)
	assert.Nil(t, entry, "different run must miss")

	failed := tool.Failure("bad input")
	require.NoError(t, cache.Store(ctx, "fail", args, failed, "run1", "org1", time.Minute))
	entry, err = cache.Find(ctx, "fail", args, "run1", "org1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	res, err = entry.Result()
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "bad input", res.Error)
	assert.Nil(t, res.Data)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	runCacheContract(t, cache)

	t.Run("expiry", func(t *testing.T) {
		clk := &clock{t: time.Now()}
		cache := NewMemoryCache()
		cache.now = clk.now
		ctx := context.Background()
		args := map[string]interface{}{"a": 1}

		require.NoError(t, cache.Store(ctx, "t", args, tool.Success(1), "r", "o", time.Second))
		require.NoError(t, cache.Store(ctx, "t", args, tool.Success(2), "r2", "o", time.Hour))

		clk.t = clk.t.Add(2 * time.Second)
		entry, err := cache.Find(ctx, "t", args, "r", "o")
		require.NoError(t, err)
		assert.Nil(t, entry)
		assert.Equal(t, 1, cache.Len(), "expired entry is dropped on read")

		clk.t = clk.t.Add(2 * time.Hour)
		removed, err := cache.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		assert.Equal(t, 0, cache.Len())
	})
}

func TestSQLiteCache(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "toolhub.db"))
	require.NoError(t, err)
	defer db.Close()

	cache := NewSQLiteCache(db)
	runCacheContract(t, cache)

	t.Run("expiry and purge", func(t *testing.T) {
		clk := &clock{t: time.Now()}
		cache := NewSQLiteCache(db)
		cache.now = clk.now
		ctx := context.Background()
		args := map[string]interface{}{"q": "x"}

		require.NoError(t, cache.Store(ctx, "search", args, tool.Success("hit"), "r", "o", time.Second))

		entry, err := cache.Find(ctx, "search", args, "r", "o")
		require.NoError(t, err)
		require.NotNil(t, entry)

		clk.t = clk.t.Add(time.Minute)
		entry, err = cache.Find(ctx, "search", args, "r", "o")
		require.NoError(t, err)
		assert.Nil(t, entry)

		removed, err := cache.Purge(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))
	})

	t.Run("store replaces previous entry", func(t *testing.T) {
		ctx := context.Background()
		args := map[string]interface{}{"k": "v"}
		require.NoError(t, cache.Store(ctx, "t", args, tool.Success("one"), "r", "o", time.Minute))
		require.NoError(t, cache.Store(ctx, "t", args, tool.Success("two"), "r", "o", time.Minute))

		entry, err := cache.Find(ctx, "t", args, "r", "o")
		require.NoError(t, err)
		require.NotNil(t, entry)
		res, err := entry.Result()
		require.NoError(t, err)
		assert.Equal(t, "two", res.Data)
	})
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisCache(client, "/test")
	runCacheContract(t, cache)

	t.Run("key layout and expiry", func(t *testing.T) {
		ctx := context.Background()
		args := map[string]interface{}{"id": 7}
		require.NoError(t, cache.Store(ctx, "lookup", args, tool.Success("x"), "r", "org9", 10*time.Second))

		fp, err := Fingerprint("lookup", args, "r", "org9")
		require.NoError(t, err)
		assert.True(t, mr.Exists("/test/toolcache/org9/"+fp))

		mr.FastForward(11 * time.Second)
		entry, err := cache.Find(ctx, "lookup", args, "r", "org9")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("non-positive ttl is not stored", func(t *testing.T) {
		ctx := context.Background()
		args := map[string]interface{}{"id": 8}
		require.NoError(t, cache.Store(ctx, "lookup", args, tool.Success("x"), "r", "org9", 0))

		entry, err := cache.Find(ctx, "lookup", args, "r", "org9")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("backend errors surface", func(t *testing.T) {
		mr.SetError("ERR backend unavailable")
		defer mr.SetError("")

		_, err := cache.Find(context.Background(), "lookup", map[string]interface{}{}, "r", "o")
		assert.Error(t, err)
	})
}
