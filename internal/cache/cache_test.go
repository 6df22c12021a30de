package cache

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestSetGetExpiry(t *testing.T) {
	store := New()
	clock := &fakeClock{now: time.Unix(0, 0)}
	store.WithClock(clock)

	store.Set("immunity", "g1:u1", "shield", time.Hour)
	if _, ok := store.Get("immunity", "g1:u1"); !ok {
		t.Fatalf("expected fresh entry")
	}

	clock.Advance(time.Hour)
	if _, ok := store.Get("immunity", "g1:u1"); ok {
		t.Fatalf("expected entry expired at exactly ttl")
	}
	if store.Has("immunity", "g1:u1") {
		t.Fatalf("expected Has false after expiry")
	}
}

func TestNamespaceIsolation(t *testing.T) {
	store := New()
	store.Set("chain", "k", 1, time.Hour)
	store.Set("immunity", "k", 2, time.Hour)

	store.Delete("chain", "k")
	if store.Has("chain", "k") {
		t.Fatalf("expected chain entry deleted")
	}
	if !store.Has("immunity", "k") {
		t.Fatalf("delete must not cross namespaces")
	}

	store.Clear("immunity")
	if store.Has("immunity", "k") {
		t.Fatalf("expected namespace cleared")
	}
}

func TestSweep(t *testing.T) {
	store := New()
	clock := &fakeClock{now: time.Unix(0, 0)}
	store.WithClock(clock)

	store.Set("history", "a", 1, time.Minute)
	store.Set("history", "b", 2, time.Hour)

	clock.Advance(30 * time.Minute)
	store.sweep()

	if store.Has("history", "a") {
		t.Fatalf("expected a swept")
	}
	if !store.Has("history", "b") {
		t.Fatalf("expected b kept")
	}
}
