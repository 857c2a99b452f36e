package enforcement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sentinel-automod/internal/metrics"
	"sentinel-automod/internal/modules/audit"
	"sentinel-automod/internal/modules/automod"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxTimeout is the longest communication timeout Discord accepts.
const MaxTimeout = 28 * 24 * time.Hour

// EventActionFailed is the audit event written when Discord rejects an action.
const EventActionFailed = "action_failed"

// Platform is the subset of *discordgo.Session the executor calls.
type Platform interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type InfractionRecorder interface {
	IncrementInfraction(ctx context.Context, guildID, userID, category, lastAction string, forgiveAfter time.Duration) (int, error)
}

// Request carries a decision plus the message context needed to act on it.
// ChannelID and MessageID are empty for join decisions.
type Request struct {
	Decision     automod.Decision
	ChannelID    string
	MessageID    string
	GuildName    string
	LogChannelID string
}

type Config struct {
	Workers       int
	QueueSize     int
	RatePerSecond float64
	Burst         int
	ForgiveAfter  time.Duration
}

// Executor carries out decisions against the platform. Work is queued and
// served by a fixed set of workers; outcomes are logged and never fed back
// into detection.
type Executor struct {
	platform     Platform
	audit        *audit.Logger
	infractions  InfractionRecorder
	logger       *zap.Logger
	limiter      *rate.Limiter
	forgiveAfter time.Duration
	workers      int
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Request
	wg     sync.WaitGroup
}

func New(platform Platform, auditLogger *audit.Logger, infractions InfractionRecorder, cfg Config, logger *zap.Logger) *Executor {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil, logger)
	}
	return &Executor{
		platform:     platform,
		audit:        auditLogger,
		infractions:  infractions,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		forgiveAfter: cfg.ForgiveAfter,
		workers:      cfg.Workers,
		now:          time.Now,
		queue:        make(chan Request, cfg.QueueSize),
	}
}

// Start launches the workers. They exit once Close drains the queue.
func (e *Executor) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for req := range e.queue {
				_ = e.Execute(ctx, req)
			}
		}()
	}
}

// Submit queues req without blocking. It returns false when the queue is
// full or the executor is closed.
func (e *Executor) Submit(req Request) bool {
	if !req.Decision.IsAction() {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	select {
	case e.queue <- req:
		return true
	default:
		metrics.ActionsDropped.Inc()
		e.logger.Warn("executor queue full, action dropped",
			zap.String("guild_id", req.Decision.GuildID),
			zap.String("user_id", req.Decision.UserID),
			zap.String("action", string(req.Decision.Kind)))
		return false
	}
}

// Close stops accepting work and waits for queued requests to finish.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	e.wg.Wait()
}

// Execute performs one request synchronously.
func (e *Executor) Execute(ctx context.Context, req Request) error {
	d := req.Decision
	if !d.IsAction() {
		return nil
	}
	auditReason := "AutoMod: " + d.Reason

	var err error
	switch d.Kind {
	case automod.ActionDelete:
		err = e.deleteMessage(ctx, req)
	case automod.ActionTimeout:
		until := e.now().Add(clampTimeout(d.Duration))
		err = e.call(ctx, func() error {
			return e.platform.GuildMemberTimeout(d.GuildID, d.UserID, &until, discordgo.WithAuditLogReason(auditReason))
		})
		if err == nil {
			e.followUpDelete(ctx, req)
			e.notifyMember(ctx, req)
		}
	case automod.ActionKick:
		err = e.call(ctx, func() error {
			return e.platform.GuildMemberDeleteWithReason(d.GuildID, d.UserID, auditReason)
		})
		if err == nil {
			e.followUpDelete(ctx, req)
		}
	case automod.ActionBan:
		// message-triggered bans purge the last day of messages, raid bans nothing
		days := 0
		if req.MessageID != "" {
			days = 1
		}
		err = e.call(ctx, func() error {
			return e.platform.GuildBanCreateWithReason(d.GuildID, d.UserID, auditReason, days)
		})
		if err == nil {
			e.followUpDelete(ctx, req)
		}
	case automod.ActionWarn:
	default:
		err = fmt.Errorf("unknown action %q", d.Kind)
	}

	if err != nil {
		metrics.ActionFailures.WithLabelValues(string(d.Kind), "primary").Inc()
		e.audit.Log(ctx, audit.LevelWarn, d.GuildID, d.UserID, EventActionFailed,
			fmt.Sprintf("rule=%s action=%s error=%s", d.Rule, d.Kind, err.Error()))
		return err
	}

	count := e.recordInfraction(ctx, d)
	metrics.ActionsExecuted.WithLabelValues(string(d.Kind)).Inc()
	e.audit.Log(ctx, levelFor(d.Kind), d.GuildID, d.UserID, "automod_"+string(d.Kind), describe(d, count))
	e.sendLog(ctx, req)
	return nil
}

func (e *Executor) call(ctx context.Context, fn func() error) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

func (e *Executor) deleteMessage(ctx context.Context, req Request) error {
	if req.ChannelID == "" || req.MessageID == "" {
		return errors.New("delete requires message context")
	}
	return e.call(ctx, func() error {
		return e.platform.ChannelMessageDelete(req.ChannelID, req.MessageID)
	})
}

func (e *Executor) followUpDelete(ctx context.Context, req Request) {
	if req.MessageID == "" {
		return
	}
	if err := e.deleteMessage(ctx, req); err != nil {
		metrics.ActionFailures.WithLabelValues(string(req.Decision.Kind), "delete").Inc()
		e.logger.Debug("follow-up delete failed", zap.String("message_id", req.MessageID), zap.Error(err))
	}
}

func (e *Executor) notifyMember(ctx context.Context, req Request) {
	d := req.Decision
	guildName := req.GuildName
	if guildName == "" {
		guildName = "the server"
	}
	content := fmt.Sprintf("⚠️ You have been timed out in **%s**\n**Reason:** %s\n**Duration:** %d seconds",
		guildName, d.Reason, int(clampTimeout(d.Duration).Seconds()))

	err := e.call(ctx, func() error {
		channel, err := e.platform.UserChannelCreate(d.UserID)
		if err != nil {
			return err
		}
		_, err = e.platform.ChannelMessageSend(channel.ID, content)
		return err
	})
	if err != nil {
		metrics.ActionFailures.WithLabelValues(string(d.Kind), "dm").Inc()
		e.logger.Debug("timeout notice not delivered", zap.String("user_id", d.UserID), zap.Error(err))
	}
}

func (e *Executor) recordInfraction(ctx context.Context, d automod.Decision) int {
	if e.infractions == nil {
		return 0
	}
	count, err := e.infractions.IncrementInfraction(ctx, d.GuildID, d.UserID, string(d.Rule), string(d.Kind), e.forgiveAfter)
	if err != nil {
		e.logger.Warn("infraction update failed", zap.String("guild_id", d.GuildID), zap.String("user_id", d.UserID), zap.Error(err))
		return 0
	}
	return count
}

func (e *Executor) sendLog(ctx context.Context, req Request) {
	if req.LogChannelID == "" {
		return
	}
	embed := BuildLogEmbed(req.Decision, e.now())
	err := e.call(ctx, func() error {
		_, err := e.platform.ChannelMessageSendEmbed(req.LogChannelID, embed)
		return err
	})
	if err != nil {
		metrics.ActionFailures.WithLabelValues(string(req.Decision.Kind), "log").Inc()
		e.logger.Warn("automod log send failed", zap.String("channel_id", req.LogChannelID), zap.Error(err))
	}
}

func clampTimeout(d time.Duration) time.Duration {
	if d > MaxTimeout {
		return MaxTimeout
	}
	if d <= 0 {
		return time.Minute
	}
	return d
}

func levelFor(kind automod.ActionKind) string {
	switch kind {
	case automod.ActionBan, automod.ActionKick:
		return audit.LevelCrit
	case automod.ActionTimeout, automod.ActionDelete:
		return audit.LevelWarn
	default:
		return audit.LevelInfo
	}
}

func describe(d automod.Decision, count int) string {
	parts := []string{
		"rule=" + string(d.Rule),
		"action=" + string(d.Kind),
	}
	if d.Kind == automod.ActionTimeout {
		parts = append(parts, fmt.Sprintf("duration=%ds", int(clampTimeout(d.Duration).Seconds())))
	}
	if count > 0 {
		parts = append(parts, fmt.Sprintf("count=%d", count))
	}
	parts = append(parts, "reason="+d.Reason)
	return strings.Join(parts, " ")
}
