package repeat

import "testing"

// curveSource triggers whenever the computed probability crosses one half,
// which the repeat curve does just above its threshold.
type curveSource struct{}

func (curveSource) Float() float64 { return 0.5 }

func (curveSource) IntRange(min, max int) int { return min }

func (curveSource) Bool(p float64) bool { return p > 0.5 }

func (curveSource) Shuffle(n int, swap func(i, j int)) {}

func TestRepeatTriggerAndReset(t *testing.T) {
	m := New(Config{Threshold: 7, Spread: 1, Targets: 2, PickLast: true}, curveSource{})

	authors := []string{"a", "b", "c", "d", "a", "b", "c", "d"}
	var targets []string
	triggered := false
	for i, author := range authors {
		targets, triggered = m.Observe("g1", "c1", author, "same thing")
		if triggered && i < 7 {
			t.Fatalf("triggered too early at message %d", i+1)
		}
	}
	if !triggered {
		t.Fatalf("8 identical messages with threshold 7 must trigger")
	}

	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	contributors := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	for _, target := range targets {
		if !contributors[target] {
			t.Fatalf("target %s is not a contributor", target)
		}
	}
	if targets[0] != "c" || targets[1] != "d" {
		t.Fatalf("last-pick must take the insertion-order tail, got %v", targets)
	}

	// The streak reset: the 9th identical message starts a fresh count.
	if _, again := m.Observe("g1", "c1", "a", "same thing"); again {
		t.Fatalf("fresh streak must not trigger immediately")
	}
}

func TestRepeatResetsOnDifferentMessage(t *testing.T) {
	m := New(Config{Threshold: 7, Spread: 1, Targets: 2, PickLast: true}, curveSource{})

	for i := 0; i < 6; i++ {
		m.Observe("g1", "c1", "a", "same thing")
	}
	m.Observe("g1", "c1", "b", "something else")

	// Six more repeats of the new body stay below the threshold.
	for i := 0; i < 6; i++ {
		if _, triggered := m.Observe("g1", "c1", "a", "something else"); triggered {
			t.Fatalf("count must restart after a different message")
		}
	}
}

func TestRepeatChannelsIndependent(t *testing.T) {
	m := New(Config{Threshold: 7, Spread: 1, Targets: 1, PickLast: true}, curveSource{})

	for i := 0; i < 7; i++ {
		m.Observe("g1", "c1", "a", "spam")
	}
	if _, triggered := m.Observe("g1", "c2", "a", "spam"); triggered {
		t.Fatalf("streaks must be tracked per channel")
	}
}

func TestRepeatRandomPickSubset(t *testing.T) {
	m := New(Config{Threshold: 7, Spread: 1, Targets: 2, PickLast: false}, curveSource{})

	authors := []string{"a", "b", "c", "a", "b", "c", "a", "b"}
	var targets []string
	triggered := false
	for _, author := range authors {
		targets, triggered = m.Observe("g1", "c1", author, "same thing")
	}
	if !triggered {
		t.Fatalf("expected trigger")
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	contributors := map[string]bool{"a": true, "b": true, "c": true}
	for _, target := range targets {
		if !contributors[target] {
			t.Fatalf("target %s is not a contributor", target)
		}
	}
}

func TestRepeatReset(t *testing.T) {
	m := New(Config{Threshold: 7, Spread: 1, Targets: 1, PickLast: true}, curveSource{})
	for i := 0; i < 7; i++ {
		m.Observe("g1", "c1", "a", "spam")
	}
	m.Reset("g1", "c1")
	if _, triggered := m.Observe("g1", "c1", "a", "spam"); triggered {
		t.Fatalf("reset must clear the streak")
	}
}
