package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var errTransient = errors.New("connection reset")

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get() = %v, %v, %v; want nil, false, nil", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "render:svg:abc"); hit {
		t.Fatal("empty cache reported a hit")
	}
	if err := c.Set(ctx, "render:svg:abc", []byte("<svg/>"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "render:svg:abc")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "render:svg:abc"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "render:svg:abc"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
	if _, hit, _ := c.Get(ctx, "render:svg:abc"); hit {
		t.Error("hit after Delete")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
}

func TestFileCacheCorrupt(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Clear() left %d entries", len(entries))
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash is not deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs share a hash")
	}
	if len(h1) != 64 {
		t.Errorf("len(Hash()) = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	d1 := k.DocumentKey("neo4j://localhost:7687", "neo4j")
	d2 := k.DocumentKey("neo4j://localhost:7687", "geo")
	if d1 == d2 || !strings.HasPrefix(d1, "doc:") {
		t.Errorf("DocumentKey() = %q, %q", d1, d2)
	}

	r1 := k.RenderKey("abc", RenderKeyOpts{Format: "svg", Seed: 1})
	r2 := k.RenderKey("abc", RenderKeyOpts{Format: "svg", Seed: 2})
	r3 := k.RenderKey("abc", RenderKeyOpts{Format: "dot", Seed: 1})
	if r1 == r2 || r1 == r3 {
		t.Error("different options share a render key")
	}
	for _, opts := range []RenderKeyOpts{
		{Format: "svg", Seed: 1, Title: "Drillholes"},
		{Format: "svg", Seed: 1, Pinned: true},
		{Format: "svg", Seed: 1, Scale: 3},
		{Format: "svg", Seed: 1, Layout: "f00d"},
	} {
		if k.RenderKey("abc", opts) == r1 {
			t.Errorf("RenderKey(%+v) matches the plain svg key", opts)
		}
	}
	if !strings.HasPrefix(r1, "render:svg:") {
		t.Errorf("RenderKey() = %q, want render:svg: prefix", r1)
	}
	if got := keyType(r1); got != "render" {
		t.Errorf("keyType() = %q, want render", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "growtree:test:")
	inner := NewDefaultKeyer()

	opts := RenderKeyOpts{Format: "json"}
	if got, want := scoped.RenderKey("h", opts), "growtree:test:"+inner.RenderKey("h", opts); got != want {
		t.Errorf("RenderKey() = %q, want %q", got, want)
	}
	if got := scoped.DocumentKey("u", "d"); !strings.HasPrefix(got, "growtree:test:doc:") {
		t.Errorf("DocumentKey() = %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) != nil")
	}
	err := Retryable(errTransient)
	if !IsRetryable(err) || !errors.Is(err, errTransient) {
		t.Errorf("Retryable() = %v, not retryable or unwrappable", err)
	}
	if err.Error() != errTransient.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
	if IsRetryable(errTransient) {
		t.Error("plain error reported retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	old := RetryDelay
	RetryDelay = time.Millisecond
	defer func() { RetryDelay = old }()
	ctx := context.Background()

	tests := []struct {
		name      string
		failures  int
		retryable bool
		wantCalls int
		wantErr   bool
	}{
		{"success", 0, true, 1, false},
		{"permanent", 5, false, 1, true},
		{"recovers", 1, true, 2, false},
		{"exhausted", 5, true, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					if tt.retryable {
						return Retryable(errTransient)
					}
					return errTransient
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error { return Retryable(errTransient) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("GROWTREE_TEST_REDIS")
	if url == "" {
		t.Skip("GROWTREE_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := NewScopedKeyer(nil, "growtree:test:").RenderKey(t.Name(), RenderKeyOpts{Format: "svg"})
	defer c.Delete(ctx, key)

	if err := c.Set(ctx, key, []byte("x"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "x" {
		t.Errorf("Get() = %q, %v, %v", data, hit, err)
	}
	_ = c.Delete(ctx, key)
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("hit after Delete")
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "://nope"); err == nil {
		t.Error("NewRedisCache() accepted a malformed url")
	}
}
