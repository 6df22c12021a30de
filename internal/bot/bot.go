package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hushbot/internal/analytics"
	"hushbot/internal/cache"
	"hushbot/internal/config"
	"hushbot/internal/duration"
	"hushbot/internal/modules/audit"
	"hushbot/internal/modules/repeat"
	"hushbot/internal/mute"
	"hushbot/internal/probability"
	"hushbot/internal/random"
	"hushbot/internal/roulette"
	"hushbot/internal/storage"
	"hushbot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rosterTTL = 10 * time.Minute

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	cache     *cache.Store
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session
	rng       random.Source
	durations *duration.Engine
	mutes     *mute.Engine
	roulette  *roulette.Manager
	repeats   *repeat.Module

	sleepWindow   utils.Window
	repeatWindow  utils.Window
	ambientWindow utils.Window

	rampsMu sync.Mutex
	ramps   map[string]*probability.Ramp

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	done chan struct{}
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, cacheStore *cache.Store, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		cache:     cacheStore,
		audit:     auditLogger,
		analytics: analyticsEngine,
		session:   session,
		rng:       random.New(),
		ramps:     make(map[string]*probability.Ramp),
		limiters:  make(map[string]*rate.Limiter),
		done:      make(chan struct{}),
	}

	b.sleepWindow, _ = utils.ParseWindow(cfg.Sleep.Window)
	b.repeatWindow, _ = utils.ParseWindow(cfg.Repeat.Window)
	b.ambientWindow, _ = utils.ParseWindow(cfg.Ambient.Window)

	b.durations = duration.NewEngine(duration.Config{
		MinMinutes: cfg.Mute.MinMinutes,
		MaxMinutes: cfg.Mute.MaxMinutes,
		MaxSeconds: cfg.Mute.MaxDurationSeconds,
	}, b.rng)

	b.mutes = mute.NewEngine(mute.Config{
		BackfireRate:    cfg.Mute.BackfireRate,
		CriticalRate:    cfg.Mute.CriticalRate,
		ImmunityRate:    cfg.Mute.ImmunityRate,
		ImmunityWindow:  time.Duration(cfg.Mute.ImmunityMinutes) * time.Minute,
		ChainEnabled:    cfg.Mute.Chain.Enabled,
		ChainExpiry:     time.Duration(cfg.Mute.Chain.ExpiryHours) * time.Hour,
		ChainMultiplier: cfg.Mute.Chain.Multiplier,
		ChainRecursive:  cfg.Mute.Chain.Recursive,
		ChainOnBackfire: cfg.Mute.Chain.GrantOnBackfire,
		SeasonalEnabled: cfg.Mute.SeasonalEnabled,
	}, cacheStore, b.rng, b.durations, b, b, auditLogger)

	b.roulette = roulette.NewManager(b.rng, b.resolveRoulette)
	b.repeats = repeat.New(repeat.Config{
		Threshold: cfg.Repeat.Threshold,
		Spread:    cfg.Repeat.Spread,
		Targets:   cfg.Repeat.Targets,
		PickLast:  cfg.Repeat.Pick == "last",
	}, b.rng)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startRetentionLoop()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	close(b.done)
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.mutes.SetSelf(session.State.User.ID)
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

// ApplyMute backs the engine with Discord's member timeout.
func (b *Bot) ApplyMute(ctx context.Context, guildID, userID string, seconds int) error {
	_ = ctx
	until := time.Now().Add(time.Duration(seconds) * time.Second)
	return b.session.GuildMemberTimeout(guildID, userID, &until)
}

// Members serves the roster from the gateway state first, then the REST API,
// cached so random-target picks do not hammer either.
func (b *Bot) Members(ctx context.Context, guildID string) ([]mute.Member, error) {
	_ = ctx
	if cached, ok := b.cache.Get("roster", guildID); ok {
		return cached.([]mute.Member), nil
	}

	var raw []*discordgo.Member
	if guild, err := b.session.State.Guild(guildID); err == nil && len(guild.Members) > 0 {
		raw = guild.Members
	} else {
		fetched, err := b.session.GuildMembers(guildID, "", 1000)
		if err != nil {
			return nil, err
		}
		raw = fetched
	}

	members := make([]mute.Member, 0, len(raw))
	for _, m := range raw {
		if m == nil || m.User == nil {
			continue
		}
		members = append(members, mute.Member{
			ID:   m.User.ID,
			Name: m.User.Username,
			Bot:  m.User.Bot,
		})
	}
	b.cache.Set("roster", guildID, members, rosterTTL)
	return members, nil
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()

	if b.roulette.Active(msg.GuildID, msg.ChannelID) {
		if strings.EqualFold(strings.TrimSpace(msg.Content), b.cfg.Roulette.JoinKeyword) {
			added, err := b.roulette.Join(msg.GuildID, msg.ChannelID, msg.Author.ID)
			if err == nil && added {
				_, _ = session.ChannelMessageSend(msg.ChannelID, "<@"+msg.Author.ID+"> is in.")
			}
			return
		}
	}

	settings := b.guildSettings(ctx, msg.GuildID)
	now := time.Now()

	if settings.RepeatEnabled && b.windowFor(settings.RepeatWindow, b.repeatWindow).Contains(now) {
		targets, triggered := b.repeats.Observe(msg.GuildID, msg.ChannelID, msg.Author.ID, msg.Content)
		if triggered {
			for _, target := range targets {
				b.applyDetectedMute(ctx, msg.GuildID, msg.ChannelID, target, audit.EventRepeatMute, settings.MaxDurationSeconds)
			}
			return
		}
	}

	if settings.AmbientEnabled && b.cfg.Ambient.Enabled {
		b.handleAmbient(ctx, msg, settings, now)
	}
}

// handleAmbient rolls the per-channel ramp against the time-of-day curve.
// A miss steepens the ramp, a hit resets it and silences the author.
func (b *Bot) handleAmbient(ctx context.Context, msg *discordgo.MessageCreate, settings storage.GuildSettings, now time.Time) {
	win := b.windowFor(settings.AmbientWindow, b.ambientWindow)
	if !win.Contains(now) {
		return
	}

	ramp := b.rampFor(msg.GuildID, msg.ChannelID)
	shape := probability.TimeOfDayCurve(b.cfg.Ambient.MinProb, b.cfg.Ambient.MaxProb, win.Position(now))
	p := ramp.Rate() * shape / b.cfg.Ambient.BaseRate
	if p > b.cfg.Ambient.MaxProb {
		p = b.cfg.Ambient.MaxProb
	}

	if !b.rng.Bool(p) {
		ramp.Miss()
		return
	}
	ramp.Hit()
	b.applyDetectedMute(ctx, msg.GuildID, msg.ChannelID, msg.Author.ID, audit.EventAmbientMute, settings.MaxDurationSeconds)
}

// applyDetectedMute runs a passively detected offender through the self path
// of the decision pipeline and announces the result. Immune offenders come
// back as ErrImmune and are skipped.
func (b *Bot) applyDetectedMute(ctx context.Context, guildID, channelID, userID, event string, maxSeconds int) {
	dec, err := b.mutes.Resolve(ctx, mute.Request{
		GuildID:    guildID,
		ActorID:    userID,
		ForceSelf:  true,
		MaxSeconds: maxSeconds,
	})
	if err != nil || !dec.Applied {
		return
	}
	b.recordTally(ctx, guildID, dec)
	b.audit.Log(ctx, audit.LevelInfo, guildID, userID, event, fmt.Sprintf("seconds=%d", dec.Seconds))
	b.announce(ctx, guildID, channelID, b.renderDecision(dec, userID))
}

func (b *Bot) resolveRoulette(guildID, channelID string, outcome roulette.Outcome) {
	ctx := context.Background()

	if outcome.Aborted {
		b.announce(ctx, guildID, channelID, "Roulette cancelled, not enough players.")
		return
	}

	settings := b.guildSettings(ctx, guildID)
	victims := redrawVictims(outcome.Victims, outcome.Survivors, func(id string) bool {
		return b.mutes.IsImmune(guildID, id)
	}, b.rng)

	var lines []string
	for _, victim := range victims {
		critical := b.rng.Bool(b.cfg.Mute.CriticalRate)
		seconds := b.durations.Compute(duration.Request{
			Critical:   critical,
			Multiplier: b.seasonal(),
			CapSeconds: settings.MaxDurationSeconds,
		})
		if err := b.ApplyMute(ctx, guildID, victim, seconds); err != nil {
			b.audit.Log(ctx, audit.LevelWarn, guildID, victim, audit.EventMuteFailed, fmt.Sprintf("effect=roulette error=%v", err))
			continue
		}
		_, _ = b.store.IncrementMuteTally(ctx, guildID, victim, "roulette", seconds)
		b.audit.Log(ctx, audit.LevelInfo, guildID, victim, audit.EventMuteApplied, fmt.Sprintf("effect=roulette seconds=%d critical=%t", seconds, critical))
		line := fmt.Sprintf("<@%s> loses, silenced for %s.", victim, formatDuration(seconds))
		if critical {
			line = "Critical! " + line
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, "Everyone walks away unscathed.")
	}
	b.announce(ctx, guildID, channelID, strings.Join(lines, "\n"))
}

// redrawVictims swaps every immune victim for a non-immune survivor, drawn at
// random. When no replacement is left the immune victim simply walks free.
func redrawVictims(victims, survivors []string, immune func(string) bool, rng random.Source) []string {
	pool := make([]string, 0, len(survivors))
	for _, id := range survivors {
		if !immune(id) {
			pool = append(pool, id)
		}
	}

	final := make([]string, 0, len(victims))
	for _, victim := range victims {
		if !immune(victim) {
			final = append(final, victim)
			continue
		}
		if len(pool) == 0 {
			continue
		}
		idx := rng.IntRange(0, len(pool)-1)
		final = append(final, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return final
}

func (b *Bot) seasonal() float64 {
	if !b.cfg.Mute.SeasonalEnabled {
		return 1
	}
	return probability.SeasonalMultiplier(time.Now())
}

func (b *Bot) rampFor(guildID, channelID string) *probability.Ramp {
	key := guildID + ":" + channelID
	b.rampsMu.Lock()
	defer b.rampsMu.Unlock()
	ramp, ok := b.ramps[key]
	if !ok {
		ramp = probability.NewRamp(b.cfg.Ambient.BaseRate, b.cfg.Ambient.RampFactor)
		b.ramps[key] = ramp
	}
	return ramp
}

// allowAction enforces the per-user command cooldown.
func (b *Bot) allowAction(guildID, userID string) bool {
	if b.cfg.CooldownSeconds <= 0 {
		return true
	}
	key := guildID + ":" + userID
	b.limitersMu.Lock()
	limiter, ok := b.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Duration(b.cfg.CooldownSeconds)*time.Second), 1)
		b.limiters[key] = limiter
	}
	b.limitersMu.Unlock()
	return limiter.Allow()
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:            guildID,
		SleepWindow:        b.cfg.Sleep.Window,
		RepeatWindow:       b.cfg.Repeat.Window,
		AmbientWindow:      b.cfg.Ambient.Window,
		MaxDurationSeconds: b.cfg.Mute.MaxDurationSeconds,
		ChainEnabled:       b.cfg.Mute.Chain.Enabled,
		SeasonalEnabled:    b.cfg.Mute.SeasonalEnabled,
		RepeatEnabled:      b.cfg.Repeat.Enabled,
		AmbientEnabled:     b.cfg.Ambient.Enabled,
		RetentionDays:      b.cfg.RetentionDays,
	}
	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	return settings
}

func (b *Bot) windowFor(raw string, fallback utils.Window) utils.Window {
	if raw == "" {
		return fallback
	}
	win, err := utils.ParseWindow(raw)
	if err != nil {
		return fallback
	}
	return win
}

func (b *Bot) recordTally(ctx context.Context, guildID string, dec mute.Decision) {
	if !dec.Applied {
		return
	}
	if _, err := b.store.IncrementMuteTally(ctx, guildID, dec.TargetID, string(dec.Effect), dec.Seconds); err != nil {
		b.logger.Warn("tally update failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// announce posts to the guild's announce channel when configured, otherwise
// to the channel the action happened in, with optional self-destruction.
func (b *Bot) announce(ctx context.Context, guildID, channelID, content string) {
	settings := b.guildSettings(ctx, guildID)
	if settings.AnnounceChannel != "" {
		channelID = settings.AnnounceChannel
	}
	if channelID == "" || content == "" {
		return
	}
	msg, err := b.session.ChannelMessageSend(channelID, content)
	if err != nil {
		b.logger.Warn("announce failed", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	if secs := b.cfg.Templates.AnnounceDeleteSeconds; secs > 0 && msg != nil {
		messageID := msg.ID
		time.AfterFunc(time.Duration(secs)*time.Second, func() {
			_ = b.session.ChannelMessageDelete(channelID, messageID)
		})
	}
}

func (b *Bot) renderDecision(dec mute.Decision, actorID string) string {
	pool := b.templatePool(dec)
	if len(pool) == 0 {
		return fmt.Sprintf("<@%s> silenced for %s.", dec.TargetID, formatDuration(dec.Seconds))
	}
	tmpl := pool[b.rng.IntRange(0, len(pool)-1)]
	return utils.RenderTemplate(tmpl, map[string]string{
		"target":   "<@" + dec.TargetID + ">",
		"username": "<@" + actorID + ">",
		"duration": formatDuration(dec.Seconds),
		"seconds":  fmt.Sprintf("%d", dec.Seconds),
		"minutes":  fmt.Sprintf("%d", dec.Seconds/60),
	})
}

func (b *Bot) templatePool(dec mute.Decision) []string {
	if dec.Critical && len(b.cfg.Templates.Critical) > 0 {
		return b.cfg.Templates.Critical
	}
	switch dec.Effect {
	case mute.EffectSelf:
		return b.cfg.Templates.Self
	case mute.EffectBackfire:
		return b.cfg.Templates.Backfire
	case mute.EffectRandom:
		return b.cfg.Templates.Random
	default:
		return b.cfg.Templates.Targeted
	}
}

func (b *Bot) startRetentionLoop() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := b.store.CleanupAuditLogs(context.Background(), b.cfg.RetentionDays); err != nil {
					b.logger.Warn("audit cleanup failed", zap.Error(err))
				}
			case <-b.done:
				return
			}
		}
	}()
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	return d.String()
}
