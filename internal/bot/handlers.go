package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hushbot/internal/modules/audit"
	"hushbot/internal/mute"
	"hushbot/internal/roulette"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respond(session, interaction, "This only works inside a server.", true)
		return
	}
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	actorID := interaction.Member.User.ID

	switch data.Name {
	case "sleep":
		b.handleSleep(ctx, session, interaction, actorID)
	case "mute":
		b.handleMute(ctx, session, interaction, actorID, data.Options)
	case "muteme":
		b.handleMuteMe(ctx, session, interaction, actorID)
	case "randommute":
		b.handleRandomMute(ctx, session, interaction, actorID)
	case "roulette":
		b.handleRoulette(ctx, session, interaction, actorID, data.Options)
	case "chain":
		b.handleChain(ctx, session, interaction, actorID, data.Options)
	case "mutestats":
		b.handleMuteStats(ctx, session, interaction, data.Options)
	default:
		b.respond(session, interaction, "Unknown command.", true)
	}
}

// handleSleep applies an exact, curve-free mute, honored only inside the
// configured sleep window.
func (b *Bot) handleSleep(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string) {
	settings := b.guildSettings(ctx, interaction.GuildID)
	now := time.Now()
	win := b.windowFor(settings.SleepWindow, b.sleepWindow)
	if !win.Contains(now) {
		b.respond(session, interaction, "It is not bedtime yet.", true)
		return
	}

	seconds := b.sleepSeconds(now)
	if ceiling := settings.MaxDurationSeconds; ceiling > 0 && seconds > ceiling {
		seconds = ceiling
	}

	if err := b.ApplyMute(ctx, interaction.GuildID, actorID, seconds); err != nil {
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, actorID, audit.EventMuteFailed, fmt.Sprintf("effect=sleep error=%v", err))
		b.respond(session, interaction, "Could not tuck you in, try again.", true)
		return
	}
	_, _ = b.store.IncrementMuteTally(ctx, interaction.GuildID, actorID, "sleep", seconds)
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, actorID, audit.EventMuteApplied, fmt.Sprintf("effect=sleep seconds=%d", seconds))
	b.respond(session, interaction, fmt.Sprintf("Good night <@%s>, see you in %s.", actorID, formatDuration(seconds)), false)
}

func (b *Bot) sleepSeconds(now time.Time) int {
	if b.cfg.Sleep.Type == "until" {
		wake := time.Date(now.Year(), now.Month(), now.Day(), b.cfg.Sleep.UntilHour, 0, 0, 0, now.Location())
		if !wake.After(now) {
			wake = wake.Add(24 * time.Hour)
		}
		return int(wake.Sub(now) / time.Second)
	}
	return b.cfg.Sleep.DurationHours * 3600
}

func (b *Bot) handleMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !b.allowAction(interaction.GuildID, actorID) {
		b.respond(session, interaction, "Easy there, cooldown is still running.", true)
		return
	}

	var targetID string
	minutes := 0
	for _, opt := range options {
		switch opt.Name {
		case "user":
			if user := opt.UserValue(session); user != nil {
				targetID = user.ID
			}
		case "minutes":
			minutes = int(opt.IntValue())
		}
	}
	if targetID == "" {
		b.respond(session, interaction, "Pick a target.", true)
		return
	}

	dec, err := b.mutes.Resolve(ctx, mute.Request{
		GuildID:    interaction.GuildID,
		ActorID:    actorID,
		TargetID:   targetID,
		Minutes:    minutes,
		MaxSeconds: b.guildSettings(ctx, interaction.GuildID).MaxDurationSeconds,
	})
	b.respondDecision(ctx, session, interaction, actorID, targetID, dec, err)
}

func (b *Bot) handleMuteMe(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string) {
	if !b.allowAction(interaction.GuildID, actorID) {
		b.respond(session, interaction, "Easy there, cooldown is still running.", true)
		return
	}
	dec, err := b.mutes.Resolve(ctx, mute.Request{
		GuildID:    interaction.GuildID,
		ActorID:    actorID,
		ForceSelf:  true,
		MaxSeconds: b.guildSettings(ctx, interaction.GuildID).MaxDurationSeconds,
	})
	b.respondDecision(ctx, session, interaction, actorID, actorID, dec, err)
}

func (b *Bot) handleRandomMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string) {
	if !b.allowAction(interaction.GuildID, actorID) {
		b.respond(session, interaction, "Easy there, cooldown is still running.", true)
		return
	}
	dec, err := b.mutes.Resolve(ctx, mute.Request{
		GuildID:    interaction.GuildID,
		ActorID:    actorID,
		MaxSeconds: b.guildSettings(ctx, interaction.GuildID).MaxDurationSeconds,
	})
	b.respondDecision(ctx, session, interaction, actorID, "", dec, err)
}

func (b *Bot) handleChain(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	var targetID string
	for _, opt := range options {
		if opt.Name == "user" {
			if user := opt.UserValue(session); user != nil {
				targetID = user.ID
			}
		}
	}

	dec, err := b.mutes.ExerciseChain(ctx, interaction.GuildID, actorID, targetID, b.guildSettings(ctx, interaction.GuildID).MaxDurationSeconds)
	switch {
	case errors.Is(err, mute.ErrNoChainRight):
		b.respond(session, interaction, "You hold no chain right.", true)
		return
	case errors.Is(err, mute.ErrImmune):
		b.respondImmune(session, interaction, targetID)
		return
	case err != nil:
		b.respond(session, interaction, "Something went wrong.", true)
		return
	}
	if !dec.Applied {
		b.respond(session, interaction, "The chain snapped, nothing happened.", true)
		return
	}
	b.recordTally(ctx, interaction.GuildID, dec)
	b.respond(session, interaction, b.renderDecision(dec, actorID), false)
}

func (b *Bot) handleRoulette(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	_ = ctx
	action := ""
	players := b.cfg.Roulette.MaxParticipants
	bullets := b.cfg.Roulette.Bullets
	for _, opt := range options {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case "players":
			players = int(opt.IntValue())
		case "bullets":
			bullets = int(opt.IntValue())
		}
	}

	switch action {
	case "start":
		err := b.roulette.Start(interaction.GuildID, interaction.ChannelID, actorID, roulette.Params{
			MaxParticipants: players,
			Bullets:         bullets,
			JoinTimeout:     time.Duration(b.cfg.Roulette.JoinTimeoutSeconds) * time.Second,
		})
		switch {
		case errors.Is(err, roulette.ErrSessionActive):
			b.respond(session, interaction, "A roulette is already spinning here.", true)
		case errors.Is(err, roulette.ErrBadParams):
			b.respond(session, interaction, "Players must be 2 to 10 with fewer bullets than players.", true)
		case err != nil:
			b.respond(session, interaction, "Could not start the roulette.", true)
		default:
			b.respond(session, interaction, fmt.Sprintf(
				"<@%s> spins the cylinder. Type %q within %ds to play. Up to %d players, %d will lose.",
				actorID, b.cfg.Roulette.JoinKeyword, b.cfg.Roulette.JoinTimeoutSeconds,
				players, bullets), false)
		}
	case "cancel":
		err := b.roulette.Cancel(interaction.GuildID, interaction.ChannelID, actorID)
		switch {
		case errors.Is(err, roulette.ErrNoSession):
			b.respond(session, interaction, "No roulette to cancel here.", true)
		case errors.Is(err, roulette.ErrNotInitiator):
			b.respond(session, interaction, "Only the one who started it can cancel it.", true)
		case err != nil:
			b.respond(session, interaction, "Could not cancel the roulette.", true)
		default:
			b.respond(session, interaction, "Roulette cancelled.", false)
		}
	default:
		b.respond(session, interaction, "Use start or cancel.", true)
	}
}

func (b *Bot) handleMuteStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	period := "day"
	if len(options) > 0 {
		period = options[0].StringValue()
	}
	start := time.Now().Add(-24 * time.Hour)
	if period == "week" {
		start = time.Now().Add(-7 * 24 * time.Hour)
	}

	report, err := b.analytics.Report(ctx, interaction.GuildID, start)
	if err != nil {
		b.respond(session, interaction, "Report unavailable.", true)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Mutes this %s: %d applied, %d failed.\n", period, report.ByEvent[audit.EventMuteApplied], report.ByEvent[audit.EventMuteFailed])
	if top, err := b.store.TopMuted(ctx, interaction.GuildID, 5); err == nil && len(top) > 0 {
		sb.WriteString("Most silenced:\n")
		for i, tally := range top {
			fmt.Fprintf(&sb, "%d. <@%s>: %d times, %s total\n", i+1, tally.UserID, tally.CountTotal, formatDuration(tally.TotalSeconds))
		}
	}
	b.respond(session, interaction, sb.String(), true)
}

// respondDecision maps pipeline outcomes onto interaction replies.
func (b *Bot) respondDecision(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, targetID string, dec mute.Decision, err error) {
	switch {
	case errors.Is(err, mute.ErrDurationTooLong):
		b.respond(session, interaction, "That is longer than the house allows.", true)
		return
	case errors.Is(err, mute.ErrImmune):
		b.respondImmune(session, interaction, targetID)
		return
	case errors.Is(err, mute.ErrNoCandidates):
		b.respond(session, interaction, "Nobody eligible to silence right now.", true)
		return
	case err != nil:
		b.respond(session, interaction, "Something went wrong.", true)
		return
	}
	if !dec.Applied {
		b.respond(session, interaction, "The mute fizzled, try again later.", true)
		return
	}
	b.recordTally(ctx, interaction.GuildID, dec)
	b.respond(session, interaction, b.renderDecision(dec, actorID), false)
}

func (b *Bot) respondImmune(session *discordgo.Session, interaction *discordgo.InteractionCreate, targetID string) {
	pool := b.cfg.Templates.Immune
	text := fmt.Sprintf("<@%s> is immune right now.", targetID)
	if len(pool) > 0 {
		text = strings.ReplaceAll(pool[b.rng.IntRange(0, len(pool)-1)], "{target}", "<@"+targetID+">")
	}
	b.respond(session, interaction, text, true)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}
