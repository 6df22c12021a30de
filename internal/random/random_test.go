package random

import "testing"

func TestIntRangeBounds(t *testing.T) {
	rng := NewSeeded(1)
	for i := 0; i < 1000; i++ {
		v := rng.IntRange(3, 7)
		if v < 3 || v > 7 {
			t.Fatalf("draw %d out of [3,7]", v)
		}
	}
	if v := rng.IntRange(5, 5); v != 5 {
		t.Fatalf("degenerate range must return min, got %d", v)
	}
}

func TestBoolEdges(t *testing.T) {
	rng := NewSeeded(1)
	for i := 0; i < 100; i++ {
		if rng.Bool(0) {
			t.Fatalf("p=0 must never hit")
		}
		if !rng.Bool(1) {
			t.Fatalf("p=1 must always hit")
		}
	}
}

func TestShufflePermutes(t *testing.T) {
	rng := NewSeeded(42)
	values := []int{0, 1, 2, 3, 4}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	seen := make(map[int]bool)
	for _, v := range values {
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Fatalf("shuffle lost elements: %v", values)
	}
}
