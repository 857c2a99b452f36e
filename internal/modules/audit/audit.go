package audit

import (
	"context"
	"time"

	"sentinel-automod/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Logger writes the automod audit trail to the store and the process log,
// and forwards each entry to an optional notifier.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	l.Record(ctx, storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	})
}

func (l *Logger) Record(ctx context.Context, entry storage.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit persist failed", zap.String("event", entry.Event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}

	fields := []zap.Field{
		zap.String("level", entry.Level),
		zap.String("guild_id", entry.GuildID),
		zap.String("user_id", entry.UserID),
		zap.String("event", entry.Event),
		zap.String("details", entry.Details),
	}
	switch entry.Level {
	case LevelCrit:
		l.logger.Error("audit", fields...)
	case LevelWarn:
		l.logger.Warn("audit", fields...)
	default:
		l.logger.Info("audit", fields...)
	}
}
