package mute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hushbot/internal/cache"
	"hushbot/internal/duration"
	"hushbot/internal/modules/audit"
	"hushbot/internal/probability"
	"hushbot/internal/random"
)

const (
	nsImmunity = "immunity"
	nsChain    = "chain"
	nsHistory  = "history"

	historyTTL = 7 * 24 * time.Hour

	// durationCurveK flattens the success curve: at K requested minutes the
	// odds of landing the mute are halved.
	durationCurveK = 15
)

var (
	ErrDurationTooLong = errors.New("requested duration exceeds the allowed maximum")
	ErrNoCandidates    = errors.New("no eligible members to mute")
	ErrImmune          = errors.New("target currently holds immunity")
	ErrNoChainRight    = errors.New("no chain right held")
)

type EffectClass string

const (
	EffectSelf     EffectClass = "self"
	EffectTargeted EffectClass = "targeted"
	EffectBackfire EffectClass = "backfire"
	EffectRandom   EffectClass = "random"
	EffectChain    EffectClass = "chain"
)

type Member struct {
	ID   string
	Name string
	Bot  bool
}

// Applier is the host-side mute primitive. Failures are soft: the engine
// reports them on the Decision, never panics or retries.
type Applier interface {
	ApplyMute(ctx context.Context, guildID, userID string, seconds int) error
}

// Roster enumerates guild members for random target selection. The host
// wraps its transport with a TTL cache; the engine just asks.
type Roster interface {
	Members(ctx context.Context, guildID string) ([]Member, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	BackfireRate    float64
	CriticalRate    float64
	ImmunityRate    float64
	ImmunityWindow  time.Duration
	ChainEnabled    bool
	ChainExpiry     time.Duration
	ChainMultiplier float64
	ChainRecursive  bool
	ChainOnBackfire bool
	SeasonalEnabled bool
}

type Request struct {
	GuildID   string
	ActorID   string
	TargetID  string // empty means pick a random victim
	ForceSelf bool
	Minutes   int // explicit requested minutes; 0 draws from the configured range
	// MaxSeconds is the per-guild ceiling override; 0 uses the engine default.
	MaxSeconds int
}

type Decision struct {
	TargetID        string
	Seconds         int
	Effect          EffectClass
	Critical        bool
	Applied         bool
	ApplyErr        error
	ChainGranted    bool
	ImmunityGranted bool
}

// HistoryRecord is informational only: it backs the "last muted by" query and
// nothing else.
type HistoryRecord struct {
	ActorID string
	At      time.Time
	Seconds int
}

type chainRight struct {
	grantedBy string
}

type Engine struct {
	cfg       Config
	store     *cache.Store
	rng       random.Source
	durations *duration.Engine
	applier   Applier
	roster    Roster
	audit     *audit.Logger
	clock     Clock
	selfID    string
}

func NewEngine(cfg Config, store *cache.Store, rng random.Source, durations *duration.Engine, applier Applier, roster Roster, auditLogger *audit.Logger) *Engine {
	if cfg.ChainMultiplier <= 0 {
		cfg.ChainMultiplier = 1.5
	}
	if cfg.ChainExpiry <= 0 {
		cfg.ChainExpiry = 24 * time.Hour
	}
	if cfg.ImmunityWindow <= 0 {
		cfg.ImmunityWindow = time.Hour
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		rng:       rng,
		durations: durations,
		applier:   applier,
		roster:    roster,
		audit:     auditLogger,
		clock:     realClock{},
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// SetSelf records the bot's own identity so random selection never picks it.
func (e *Engine) SetSelf(userID string) {
	e.selfID = userID
}

// Resolve runs one mute-worthy event through the full decision pipeline:
// self shortcut, backfire, random target finalization, immunity, critical
// roll, duration, application and post-effects. Application errors come back
// on the Decision, pipeline aborts come back as sentinel errors.
func (e *Engine) Resolve(ctx context.Context, req Request) (Decision, error) {
	ceiling := e.durations.MaxSeconds()
	if req.MaxSeconds > 0 && req.MaxSeconds < ceiling {
		ceiling = req.MaxSeconds
	}
	if req.Minutes > 0 && req.Minutes*60 > ceiling {
		return Decision{}, ErrDurationTooLong
	}

	var dec Decision
	switch {
	case req.ForceSelf || (req.TargetID != "" && req.TargetID == req.ActorID):
		// Immunity shields its holder on every selection path, including the
		// detector-driven self path.
		if e.IsImmune(req.GuildID, req.ActorID) {
			return Decision{}, ErrImmune
		}
		dec.TargetID = req.ActorID
		dec.Effect = EffectSelf
	case req.TargetID != "":
		// Success odds shrink with the requested duration; at zero minutes
		// this reduces to the flat backfire rate.
		success := probability.DurationCurve(1-e.cfg.BackfireRate, req.Minutes, durationCurveK)
		if !e.rng.Bool(success) {
			intended := req.TargetID
			dec.TargetID = req.ActorID
			dec.Effect = EffectBackfire
			if e.cfg.ChainEnabled && e.cfg.ChainOnBackfire {
				e.grantChain(req.GuildID, intended, req.ActorID)
				dec.ChainGranted = true
			}
		} else {
			if e.IsImmune(req.GuildID, req.TargetID) {
				return Decision{}, ErrImmune
			}
			dec.TargetID = req.TargetID
			dec.Effect = EffectTargeted
		}
	default:
		target, err := e.randomTarget(ctx, req.GuildID, req.ActorID)
		if err != nil {
			return Decision{}, err
		}
		dec.TargetID = target
		dec.Effect = EffectRandom
	}

	dec.Critical = e.rng.Bool(e.cfg.CriticalRate)
	dec.Seconds = e.durations.Compute(duration.Request{
		FixedSeconds: req.Minutes * 60,
		Critical:     dec.Critical,
		Multiplier:   e.seasonal(),
		CapSeconds:   req.MaxSeconds,
	})

	e.finalize(ctx, req.GuildID, req.ActorID, &dec)
	return dec, nil
}

// ExerciseChain consumes the actor's chain right and mutes the target with an
// escalated duration, capped by maxSeconds when positive. The right is deleted
// before the mute is applied so it can never be spent twice, even if the
// application fails.
func (e *Engine) ExerciseChain(ctx context.Context, guildID, actorID, targetID string, maxSeconds int) (Decision, error) {
	if !e.cfg.ChainEnabled {
		return Decision{}, ErrNoChainRight
	}
	key := cacheKey(guildID, actorID)
	value, ok := e.store.Get(nsChain, key)
	if !ok {
		return Decision{}, ErrNoChainRight
	}
	right := value.(chainRight)
	if targetID == "" {
		targetID = right.grantedBy
	}
	if e.IsImmune(guildID, targetID) {
		return Decision{}, ErrImmune
	}
	e.store.Delete(nsChain, key)

	dec := Decision{
		TargetID: targetID,
		Effect:   EffectChain,
		Critical: e.rng.Bool(e.cfg.CriticalRate),
	}
	dec.Seconds = e.durations.Compute(duration.Request{
		Critical:   dec.Critical,
		Multiplier: e.cfg.ChainMultiplier * e.seasonal(),
		CapSeconds: maxSeconds,
	})

	if err := e.applier.ApplyMute(ctx, guildID, targetID, dec.Seconds); err != nil {
		dec.ApplyErr = err
		e.audit.Log(ctx, audit.LevelWarn, guildID, targetID, audit.EventMuteFailed, fmt.Sprintf("effect=chain actor=%s error=%v", actorID, err))
		return dec, nil
	}
	dec.Applied = true
	e.recordHistory(guildID, actorID, &dec)
	if e.cfg.ChainRecursive && targetID != actorID {
		e.grantChain(guildID, targetID, actorID)
		dec.ChainGranted = true
	}
	e.audit.Log(ctx, audit.LevelInfo, guildID, targetID, audit.EventMuteApplied, fmt.Sprintf("effect=chain seconds=%d critical=%t actor=%s", dec.Seconds, dec.Critical, actorID))
	return dec, nil
}

// HasChainRight reports whether the user currently holds an unexpired right.
func (e *Engine) HasChainRight(guildID, userID string) bool {
	return e.store.Has(nsChain, cacheKey(guildID, userID))
}

func (e *Engine) IsImmune(guildID, userID string) bool {
	return e.store.Has(nsImmunity, cacheKey(guildID, userID))
}

// LastMutedBy returns the most recent history record for the user, if any.
func (e *Engine) LastMutedBy(guildID, userID string) (HistoryRecord, bool) {
	value, ok := e.store.Get(nsHistory, cacheKey(guildID, userID))
	if !ok {
		return HistoryRecord{}, false
	}
	return value.(HistoryRecord), true
}

func (e *Engine) finalize(ctx context.Context, guildID, actorID string, dec *Decision) {
	if err := e.applier.ApplyMute(ctx, guildID, dec.TargetID, dec.Seconds); err != nil {
		dec.ApplyErr = err
		e.audit.Log(ctx, audit.LevelWarn, guildID, dec.TargetID, audit.EventMuteFailed, fmt.Sprintf("effect=%s actor=%s error=%v", dec.Effect, actorID, err))
		return
	}
	dec.Applied = true
	e.recordHistory(guildID, actorID, dec)

	if dec.TargetID != actorID {
		if e.rng.Bool(e.cfg.ImmunityRate) {
			e.store.Set(nsImmunity, cacheKey(guildID, dec.TargetID), struct{}{}, e.cfg.ImmunityWindow)
			dec.ImmunityGranted = true
		}
		if e.cfg.ChainEnabled {
			e.grantChain(guildID, dec.TargetID, actorID)
			dec.ChainGranted = true
		}
	}
	e.audit.Log(ctx, audit.LevelInfo, guildID, dec.TargetID, audit.EventMuteApplied, fmt.Sprintf("effect=%s seconds=%d critical=%t actor=%s", dec.Effect, dec.Seconds, dec.Critical, actorID))
}

func (e *Engine) recordHistory(guildID, actorID string, dec *Decision) {
	e.store.Set(nsHistory, cacheKey(guildID, dec.TargetID), HistoryRecord{
		ActorID: actorID,
		At:      e.clock.Now(),
		Seconds: dec.Seconds,
	}, historyTTL)
}

func (e *Engine) grantChain(guildID, holder, against string) {
	e.store.Set(nsChain, cacheKey(guildID, holder), chainRight{grantedBy: against}, e.cfg.ChainExpiry)
}

// randomTarget draws uniformly from the roster, excluding bots, the actor and
// anyone currently immune.
func (e *Engine) randomTarget(ctx context.Context, guildID, actorID string) (string, error) {
	members, err := e.roster.Members(ctx, guildID)
	if err != nil {
		return "", err
	}
	candidates := make([]string, 0, len(members))
	for _, member := range members {
		if member.Bot || member.ID == actorID || member.ID == e.selfID {
			continue
		}
		if e.IsImmune(guildID, member.ID) {
			continue
		}
		candidates = append(candidates, member.ID)
	}
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	return candidates[e.rng.IntRange(0, len(candidates)-1)], nil
}

func (e *Engine) seasonal() float64 {
	if !e.cfg.SeasonalEnabled {
		return 1
	}
	return probability.SeasonalMultiplier(e.clock.Now())
}

func cacheKey(guildID, userID string) string {
	return guildID + ":" + userID
}
