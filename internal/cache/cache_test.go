package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New()

	c.Set("acme", KindPrompt, "email", "compiled prompt text", time.Minute)

	got, ok := c.Get("acme", KindPrompt, "email")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.(string) != "compiled prompt text" {
		t.Errorf("got %v", got)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New()
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	c.Set("acme", KindSummary, "", "summary", 5*time.Minute)

	if _, ok := c.Get("acme", KindSummary, ""); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(6 * time.Minute)
	if _, ok := c.Get("acme", KindSummary, ""); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", c.Len())
	}
}

func TestCache_InvalidateClearsAllKinds(t *testing.T) {
	c := New()

	c.Set("acme", KindManifest, "", "m", time.Hour)
	c.Set("acme", KindPrompt, "email", "p1", time.Hour)
	c.Set("acme", KindPrompt, "blog", "p2", time.Hour)
	c.Set("acme", KindSummary, "", "s", time.Hour)
	c.Set("other", KindManifest, "", "keep", time.Hour)

	c.Invalidate("acme")

	for _, k := range []Kind{KindManifest, KindSummary} {
		if _, ok := c.Get("acme", k, ""); ok {
			t.Errorf("kind %s survived invalidation", k)
		}
	}
	for _, ct := range []string{"email", "blog"} {
		if _, ok := c.Get("acme", KindPrompt, ct); ok {
			t.Errorf("prompt %s survived invalidation", ct)
		}
	}
	if _, ok := c.Get("other", KindManifest, ""); !ok {
		t.Error("invalidation leaked into another workspace")
	}
}

func TestCache_NilSafe(t *testing.T) {
	var c *Cache

	// All operations on a nil cache degrade to no-op / miss.
	c.Set("acme", KindManifest, "", "m", time.Hour)
	c.Invalidate("acme")
	if _, ok := c.Get("acme", KindManifest, ""); ok {
		t.Error("nil cache returned a hit")
	}
	if c.Len() != 0 {
		t.Error("nil cache Len != 0")
	}
}

func TestCache_WorkspaceSeparatorCollision(t *testing.T) {
	c := New()

	c.Set("a|b", KindManifest, "", "m1", time.Hour)
	c.Set("a_b", KindManifest, "", "m2", time.Hour)

	c.Invalidate("a|b")

	// Both workspaces normalize to the same prefix; neither may survive
	// in a way that leaks a stale value for the other.
	if _, ok := c.Get("a|b", KindManifest, ""); ok {
		t.Error("invalidated workspace still cached")
	}
}
