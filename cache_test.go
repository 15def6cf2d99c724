package postshot

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(2, time.Minute)
	c.Store("a", []byte("A"))
	c.Store("b", []byte("B"))
	c.Store("empty", nil)

	got, ok := c.Load("a")
	if !ok {
		t.Fatal("a is not cached")
	}
	if diff := cmp.Diff([]byte("A"), got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.Load("empty"); ok {
		t.Error("empty values should not be cached")
	}

	// a was used more recently than b
	c.Store("c", []byte("C"))
	if _, ok := c.Load("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Load("a"); !ok {
		t.Error("a should still be cached")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10, 20*time.Millisecond)
	c.Store("a", []byte("A"))
	if _, ok := c.Load("a"); !ok {
		t.Fatal("a is not cached")
	}
	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Load("a"); ok {
		t.Error("a should have expired")
	}
}

func TestNoCache(t *testing.T) {
	var c Cache = noCache{}
	c.Store("a", []byte("A"))
	if _, ok := c.Load("a"); ok {
		t.Error("noCache should never hit")
	}
}
