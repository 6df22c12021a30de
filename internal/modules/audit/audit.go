package audit

import (
	"context"
	"time"

	"hushbot/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Event names for the mute trail. Analytics and the stats command key off
// these, so new producers must reuse them rather than invent variants.
const (
	EventMuteApplied = "mute_applied"
	EventMuteFailed  = "mute_failed"
	EventRepeatMute  = "repeat_mute"
	EventAmbientMute = "ambient_mute"
)

// Logger records every mute decision to the persistent trail and mirrors it
// to the structured log. A nil store skips persistence, which keeps engine
// unit tests free of a database.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

// SetNotifier installs a hook invoked for every entry, used to fan events out
// to a moderation channel.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		_ = l.store.AddAuditLog(ctx, entry)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
