package cache

import (
	"testing"
	"time"
)

func TestGenericCacheGetSetDelete(t *testing.T) {
	c := New(NoExpiration, 0, nil)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v (ok=%v)", val, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Delete("key1")
	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key1 to be gone after Delete")
	}
}

func TestGenericCacheParentFallback(t *testing.T) {
	parent := NewBatchCache()
	parent.Set("model_path", "/ref/model.pt")

	child := NewStepCache(parent)
	val, ok := child.GetString("model_path")
	if !ok || val != "/ref/model.pt" {
		t.Fatalf("expected child to see parent's model_path, got %v (ok=%v)", val, ok)
	}

	child.Set("model_path", "/scratch/override.pt")
	val, _ = child.GetString("model_path")
	if val != "/scratch/override.pt" {
		t.Fatalf("expected child override to shadow parent, got %v", val)
	}
	parentVal, _ := parent.GetString("model_path")
	if parentVal != "/ref/model.pt" {
		t.Fatalf("expected parent unaffected by child write, got %v", parentVal)
	}
}

func TestGenericCacheTTLExpiry(t *testing.T) {
	c := New(DefaultExpiration, 0, nil)
	c.SetWithTTL("pending_count", 3, 10*time.Millisecond)
	if v, ok := c.GetInt("pending_count"); !ok || v != 3 {
		t.Fatalf("expected 3 immediately after set, got %v (ok=%v)", v, ok)
	}
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("pending_count"); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestGenericCacheIncrementInt(t *testing.T) {
	c := New(NoExpiration, 0, nil)
	if _, err := c.IncrementInt("n", 5); err != nil {
		t.Fatal(err)
	}
	v, err := c.IncrementInt("n", 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	v, err = c.DecrementInt("n", 3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 4 {
		t.Fatalf("expected 4, got %d", v)
	}
}
