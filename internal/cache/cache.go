package cache

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry struct {
	value  any
	expiry time.Time
}

// Store is a namespaced key/value map where every entry carries an absolute
// expiry instant. Reads lazily evict stale entries; a periodic sweep bounds
// memory independent of read traffic.
type Store struct {
	mu         sync.Mutex
	clock      Clock
	namespaces map[string]map[string]entry
	done       chan struct{}
	closeOnce  sync.Once
}

func New() *Store {
	return &Store{
		clock:      realClock{},
		namespaces: make(map[string]map[string]entry),
		done:       make(chan struct{}),
	}
}

func (s *Store) WithClock(clock Clock) {
	s.clock = clock
}

func (s *Store) Set(namespace, key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]entry)
		s.namespaces[namespace] = ns
	}
	ns[key] = entry{value: value, expiry: s.clock.Now().Add(ttl)}
}

func (s *Store) Get(namespace, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	if ns == nil {
		return nil, false
	}
	item, ok := ns[key]
	if !ok {
		return nil, false
	}
	if !item.expiry.After(s.clock.Now()) {
		delete(ns, key)
		return nil, false
	}
	return item.value, true
}

func (s *Store) Has(namespace, key string) bool {
	_, ok := s.Get(namespace, key)
	return ok
}

func (s *Store) Delete(namespace, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns := s.namespaces[namespace]; ns != nil {
		delete(ns, key)
	}
}

func (s *Store) Clear(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
}

// StartSweep evicts expired entries across all namespaces every interval
// until Close is called.
func (s *Store) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for name, ns := range s.namespaces {
		for key, item := range ns {
			if !item.expiry.After(now) {
				delete(ns, key)
			}
		}
		if len(ns) == 0 {
			delete(s.namespaces, name)
		}
	}
}
