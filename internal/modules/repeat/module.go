package repeat

import (
	"sync"

	"hushbot/internal/probability"
	"hushbot/internal/random"
)

type Config struct {
	Threshold float64
	Spread    float64
	Targets   int
	PickLast  bool // tail of insertion order instead of a random draw
}

type state struct {
	lastBody     string
	count        int
	contributors []string // unique authors in insertion order
}

// Module tracks consecutive identical messages per channel. Exactly one roll
// happens per repeated message, and a successful trigger fully resets the
// streak so the same run can never mute twice.
type Module struct {
	mu     sync.Mutex
	cfg    Config
	rng    random.Source
	states map[string]*state
}

func New(cfg Config, rng random.Source) *Module {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 7.5
	}
	if cfg.Spread <= 0 {
		cfg.Spread = 1
	}
	if cfg.Targets <= 0 {
		cfg.Targets = 2
	}
	return &Module{cfg: cfg, rng: rng, states: make(map[string]*state)}
}

// Observe feeds one message through the channel's streak state and returns
// the users to mute when the streak triggers.
func (m *Module) Observe(guildID, channelID, authorID, body string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := guildID + ":" + channelID
	st := m.states[key]
	if st == nil {
		st = &state{}
		m.states[key] = st
	}

	if body != st.lastBody {
		st.lastBody = body
		st.count = 1
		st.contributors = []string{authorID}
		return nil, false
	}

	st.count++
	st.addContributor(authorID)
	if st.count < 2 {
		return nil, false
	}

	p := probability.RepeatCurve(st.count, m.cfg.Threshold, m.cfg.Spread)
	if !m.rng.Bool(p) {
		return nil, false
	}

	targets := m.pick(st.contributors)
	m.states[key] = &state{}
	return targets, true
}

// Reset discards the channel's streak, e.g. after an external mute action.
func (m *Module) Reset(guildID, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, guildID+":"+channelID)
}

func (st *state) addContributor(authorID string) {
	for _, id := range st.contributors {
		if id == authorID {
			return
		}
	}
	st.contributors = append(st.contributors, authorID)
}

func (m *Module) pick(contributors []string) []string {
	n := m.cfg.Targets
	if n >= len(contributors) {
		return append([]string(nil), contributors...)
	}
	if m.cfg.PickLast {
		return append([]string(nil), contributors[len(contributors)-n:]...)
	}
	pool := append([]string(nil), contributors...)
	m.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:n]
}
