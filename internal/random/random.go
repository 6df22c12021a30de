package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source abstracts every random draw the engines make so tests can inject
// deterministic sequences.
type Source interface {
	// Float returns a uniform draw in [0,1).
	Float() float64
	// IntRange returns a uniform integer in [min,max], both inclusive.
	IntRange(min, max int) int
	// Bool reports whether a uniform draw landed under p.
	Bool(p float64) bool
	// Shuffle applies a uniform Fisher-Yates permutation.
	Shuffle(n int, swap func(i, j int))
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func New() Source {
	return NewSeeded(time.Now().UnixNano())
}

func NewSeeded(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *lockedSource) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.Intn(max-min+1)
}

func (s *lockedSource) Bool(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float() < p
}

func (s *lockedSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}
