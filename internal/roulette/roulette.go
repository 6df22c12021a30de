package roulette

import (
	"errors"
	"sync"
	"time"

	"hushbot/internal/random"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

var (
	ErrSessionActive = errors.New("a roulette session is already running in this channel")
	ErrNoSession     = errors.New("no open roulette session in this channel")
	ErrNotInitiator  = errors.New("only the initiator can cancel the session")
	ErrBadParams     = errors.New("invalid roulette parameters")
)

type Params struct {
	MaxParticipants int           // 2..10
	Bullets         int           // 1..MaxParticipants-1
	JoinTimeout     time.Duration // 10s..300s
}

type Outcome struct {
	Initiator string
	Victims   []string
	Survivors []string
	Aborted   bool // fewer than two participants joined
}

const (
	stateOpen = iota
	stateResolving
)

type session struct {
	guildID      string
	channelID    string
	initiator    string
	params       Params
	participants []string
	joined       map[string]struct{}
	timer        Timer
	state        int
}

// Manager holds at most one live session per (guild, channel). Resolution is
// delivered through the resolve callback, outside the manager lock, so the
// callback is free to do I/O.
type Manager struct {
	mu       sync.Mutex
	clock    Clock
	rng      random.Source
	sessions map[string]*session
	resolve  func(guildID, channelID string, outcome Outcome)
}

func NewManager(rng random.Source, resolve func(guildID, channelID string, outcome Outcome)) *Manager {
	return &Manager{
		clock:    realClock{},
		rng:      rng,
		sessions: make(map[string]*session),
		resolve:  resolve,
	}
}

func (m *Manager) WithClock(clock Clock) {
	m.clock = clock
}

func (m *Manager) Start(guildID, channelID, initiator string, params Params) error {
	if params.MaxParticipants < 2 || params.MaxParticipants > 10 {
		return ErrBadParams
	}
	if params.Bullets < 1 || params.Bullets > params.MaxParticipants-1 {
		return ErrBadParams
	}
	if params.JoinTimeout < 10*time.Second || params.JoinTimeout > 300*time.Second {
		return ErrBadParams
	}

	key := sessionKey(guildID, channelID)
	m.mu.Lock()
	if m.sessions[key] != nil {
		m.mu.Unlock()
		return ErrSessionActive
	}
	s := &session{
		guildID:      guildID,
		channelID:    channelID,
		initiator:    initiator,
		params:       params,
		participants: []string{initiator},
		joined:       map[string]struct{}{initiator: {}},
		state:        stateOpen,
	}
	m.sessions[key] = s
	m.mu.Unlock()

	// Scheduled after the session is published so a stop on early resolution
	// can always find the handle.
	timer := m.clock.AfterFunc(params.JoinTimeout, func() {
		m.resolveSession(key)
	})
	m.mu.Lock()
	if current := m.sessions[key]; current == s {
		s.timer = timer
	} else {
		timer.Stop()
	}
	m.mu.Unlock()
	return nil
}

// Join enrolls the user into the open session, if any. Reaching capacity
// resolves immediately. The boolean reports whether the user was newly added.
func (m *Manager) Join(guildID, channelID, userID string) (bool, error) {
	key := sessionKey(guildID, channelID)
	m.mu.Lock()
	s := m.sessions[key]
	if s == nil || s.state != stateOpen {
		m.mu.Unlock()
		return false, ErrNoSession
	}
	if _, ok := s.joined[userID]; ok {
		m.mu.Unlock()
		return false, nil
	}
	if len(s.participants) >= s.params.MaxParticipants {
		m.mu.Unlock()
		return false, nil
	}
	s.joined[userID] = struct{}{}
	s.participants = append(s.participants, userID)
	full := len(s.participants) == s.params.MaxParticipants
	m.mu.Unlock()

	if full {
		m.resolveSession(key)
	}
	return true, nil
}

// Cancel discards an open session. Honored only while the join window is
// still open and only for the initiator.
func (m *Manager) Cancel(guildID, channelID, userID string) error {
	key := sessionKey(guildID, channelID)
	m.mu.Lock()
	s := m.sessions[key]
	if s == nil || s.state != stateOpen {
		m.mu.Unlock()
		return ErrNoSession
	}
	if s.initiator != userID {
		m.mu.Unlock()
		return ErrNotInitiator
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(m.sessions, key)
	m.mu.Unlock()
	return nil
}

func (m *Manager) Active(guildID, channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionKey(guildID, channelID)] != nil
}

func (m *Manager) resolveSession(key string) {
	m.mu.Lock()
	s := m.sessions[key]
	if s == nil || s.state != stateOpen {
		m.mu.Unlock()
		return
	}
	s.state = stateResolving
	if s.timer != nil {
		s.timer.Stop()
	}
	participants := append([]string(nil), s.participants...)
	m.mu.Unlock()

	outcome := Outcome{Initiator: s.initiator}
	if len(participants) < 2 {
		outcome.Aborted = true
		outcome.Survivors = participants
	} else {
		m.rng.Shuffle(len(participants), func(i, j int) {
			participants[i], participants[j] = participants[j], participants[i]
		})
		bullets := s.params.Bullets
		if bullets > len(participants) {
			bullets = len(participants)
		}
		outcome.Victims = participants[:bullets]
		outcome.Survivors = participants[bullets:]
	}
	m.resolve(s.guildID, s.channelID, outcome)

	// The session stays registered, in Resolving, until the callback returns,
	// so a new start cannot slip in while victims are still being handled.
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
}

func sessionKey(guildID, channelID string) string {
	return guildID + ":" + channelID
}
