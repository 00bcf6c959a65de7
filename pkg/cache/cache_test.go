package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get() = (%v, %v, %v), want a clean miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get on empty cache should miss")
	}

	if err := c.Set(ctx, "k", []byte("hello"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "hello" {
		t.Fatalf("Get() = (%q, %v, %v)", data, hit, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
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
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}

	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl entry should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	p := c.path("k")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte{0xc1}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Clear() removed %d entries, want 3", n)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("Clear left %d entries", len(entries))
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	type payload struct {
		Message string
		History []string
	}
	k1 := k.ReplyKey("http://a", "m", payload{Message: "hi"})
	k2 := k.ReplyKey("http://a", "m", payload{Message: "hi", History: []string{"x"}})
	k3 := k.ReplyKey("http://a", "other", payload{Message: "hi"})
	if k1 == k2 || k1 == k3 {
		t.Error("different requests should produce different keys")
	}
	if k1 != k.ReplyKey("http://a", "m", payload{Message: "hi"}) {
		t.Error("ReplyKey should be deterministic")
	}
	if !strings.HasPrefix(k1, "reply:") {
		t.Errorf("ReplyKey = %s", k1)
	}
	if got := k.SessionKey("abc"); got != "session:abc" {
		t.Errorf("SessionKey = %s", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "canvas:1:")
	if got := scoped.SessionKey("abc"); got != "canvas:1:session:abc" {
		t.Errorf("SessionKey = %s", got)
	}
	if got := scoped.ReplyKey("e", "m", nil); !strings.HasPrefix(got, "canvas:1:reply:") {
		t.Errorf("ReplyKey = %s", got)
	}
}

func TestKeyType(t *testing.T) {
	tests := map[string]string{
		"reply:abc":                 "reply",
		"session:x":                 "session",
		"canvas:1:session:x":        "session",
		"tenant:reply:0123456789ab": "reply",
		"whatever":                  "other",
	}
	for key, want := range tests {
		if got := KeyType(key); got != want {
			t.Errorf("KeyType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	type reply struct {
		Message string
		Count   int
	}
	if err := SetValue(ctx, c, "reply:1", reply{"hi", 3}, time.Hour); err != nil {
		t.Fatal(err)
	}
	var got reply
	ok, err := GetValue(ctx, c, "reply:1", &got)
	if err != nil || !ok || got != (reply{"hi", 3}) {
		t.Errorf("GetValue() = (%+v, %v, %v)", got, ok, err)
	}

	ok, err = GetValue(ctx, c, "reply:missing", &got)
	if ok || err != nil {
		t.Errorf("GetValue(missing) = (%v, %v)", ok, err)
	}

	_ = c.Set(ctx, "reply:bad", []byte{0xc1}, 0)
	if _, err := GetValue(ctx, c, "reply:bad", &got); !errors.Is(err, ErrCorrupt) {
		t.Errorf("GetValue(corrupt) error = %v, want ErrCorrupt", err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, "canvasflow-test:")
	defer c.Close()

	// A dead backend is an error, never a silent miss.
	_, ok, err := c.Get(context.Background(), "reply:x")
	if err == nil || ok {
		t.Errorf("Get() = (%v, %v), want an error", ok, err)
	}
	if err := c.Set(context.Background(), "reply:x", []byte("v"), time.Minute); err == nil {
		t.Error("Set() should fail without a server")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("CANVASFLOW_TEST_REDIS")
	if addr == "" {
		t.Skip("CANVASFLOW_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "canvasflow-test:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get() = (%q, %v, %v)", data, hit, err)
	}
	_ = c.Delete(ctx, "k")
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get after Delete should miss")
	}
}
