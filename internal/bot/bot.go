package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sentinel-automod/internal/analytics"
	"sentinel-automod/internal/config"
	"sentinel-automod/internal/metrics"
	"sentinel-automod/internal/modules/audit"
	"sentinel-automod/internal/modules/automod"
	"sentinel-automod/internal/modules/enforcement"
	"sentinel-automod/internal/modules/immunity"
	"sentinel-automod/internal/settings"
	"sentinel-automod/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	settings  *settings.Store
	detector  *automod.Detector
	immunity  *immunity.Module
	executor  *enforcement.Executor
	audit     *audit.Logger
	analytics *analytics.Service
	session   *discordgo.Session

	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, settingsStore *settings.Store, detector *automod.Detector, auditLogger *audit.Logger, analyticsEngine *analytics.Service) (*Bot, error) {
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
		settings:  settingsStore,
		detector:  detector,
		immunity:  immunity.New(),
		audit:     auditLogger,
		analytics: analyticsEngine,
		session:   session,
	}
	b.executor = enforcement.New(session, auditLogger, store, enforcement.Config{
		Workers:       cfg.Enforcement.Workers,
		QueueSize:     cfg.Enforcement.QueueSize,
		RatePerSecond: cfg.Enforcement.APIRatePerSecond,
		Burst:         cfg.Enforcement.APIBurst,
		ForgiveAfter:  cfg.Enforcement.ForgiveAfter(),
	}, logger)
	b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
		if entry.Event != enforcement.EventActionFailed {
			return
		}
		b.notifyFailure(ctx, entry)
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.executor.Start(ctx)

	if err := b.session.Open(); err != nil {
		return err
	}
	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startJobs(ctx)
	return nil
}

// Close stops gateway intake first, then lets queued actions finish.
func (b *Bot) Close(ctx context.Context) {
	if b.session != nil {
		_ = b.session.Close()
	}

	done := make(chan struct{})
	go func() {
		b.executor.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("executor drain timed out")
	}

	if b.cancel != nil {
		b.cancel()
	}
	b.jobs.Wait()
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if reason := preCheckSkip(msg.Message); reason != "" {
		metrics.EventsSkipped.WithLabelValues(reason).Inc()
		return
	}

	ctx := context.Background()
	cfg := b.guildConfig(ctx, msg.GuildID)
	guild := b.guild(msg.GuildID)
	if reason := b.skipReason(msg.Message, guild, cfg.ImmuneRoles); reason != "" {
		metrics.EventsSkipped.WithLabelValues(reason).Inc()
		return
	}

	start := time.Now()
	decision := b.detector.EvaluateMessage(messageEvent(msg.Message, start), cfg)
	metrics.EvaluationDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	metrics.EventsEvaluated.WithLabelValues("message").Inc()

	if !decision.IsAction() {
		return
	}
	b.dispatch(enforcement.Request{
		Decision:     decision,
		ChannelID:    msg.ChannelID,
		MessageID:    msg.ID,
		GuildName:    guildName(guild),
		LogChannelID: cfg.LogChannelID,
	})
}

// preCheckSkip rejects messages that never need guild settings: anything
// from a bot and anything outside a guild.
func preCheckSkip(msg *discordgo.Message) string {
	if msg.Author == nil || msg.Author.Bot {
		return "bot"
	}
	if msg.GuildID == "" {
		return "dm"
	}
	return ""
}

// skipReason returns the metrics label for a message automod must ignore,
// or "" when it should be evaluated.
func (b *Bot) skipReason(msg *discordgo.Message, guild *discordgo.Guild, immuneRoles []string) string {
	if reason := preCheckSkip(msg); reason != "" {
		return reason
	}
	var member *discordgo.Member
	if msg.Member != nil {
		copied := *msg.Member
		copied.User = msg.Author
		member = &copied
	}
	if b.immunity.IsImmune(guild, member, immuneRoles) {
		return "immune"
	}
	return ""
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.User.Bot {
		metrics.EventsSkipped.WithLabelValues("bot").Inc()
		return
	}

	ctx := context.Background()
	cfg := b.guildConfig(ctx, event.GuildID)

	start := time.Now()
	decision := b.detector.EvaluateJoin(automod.JoinEvent{
		Timestamp: start,
		GuildID:   event.GuildID,
		UserID:    event.User.ID,
	}, cfg)
	metrics.EvaluationDuration.WithLabelValues("join").Observe(time.Since(start).Seconds())
	metrics.EventsEvaluated.WithLabelValues("join").Inc()

	if !decision.IsAction() {
		return
	}
	b.dispatch(enforcement.Request{
		Decision:     decision,
		GuildName:    guildName(b.guild(event.GuildID)),
		LogChannelID: cfg.LogChannelID,
	})
}

func (b *Bot) dispatch(req enforcement.Request) {
	d := req.Decision
	metrics.Decisions.WithLabelValues(string(d.Rule), string(d.Kind)).Inc()
	b.logger.Info("automod decision",
		zap.String("guild_id", d.GuildID),
		zap.String("user_id", d.UserID),
		zap.String("rule", string(d.Rule)),
		zap.String("action", string(d.Kind)),
		zap.String("reason", d.Reason))
	b.executor.Submit(req)
}

// guildConfig never fails: a storage error falls back to the defaults so
// detection keeps running.
func (b *Bot) guildConfig(ctx context.Context, guildID string) automod.GuildConfig {
	cfg, err := b.settings.Get(ctx, guildID)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return b.settings.Defaults()
	}
	return cfg
}

func (b *Bot) guild(guildID string) *discordgo.Guild {
	if b.session == nil || b.session.State == nil {
		return nil
	}
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	return guild
}

func guildName(guild *discordgo.Guild) string {
	if guild == nil {
		return ""
	}
	return guild.Name
}

// notifyFailure tells moderators in the guild's log channel that an action
// could not be carried out, usually because of missing permissions.
func (b *Bot) notifyFailure(ctx context.Context, entry storage.AuditLog) {
	cfg := b.guildConfig(ctx, entry.GuildID)
	if cfg.LogChannelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(cfg.LogChannelID, failureEmbed(entry)); err != nil {
		b.logger.Warn("failure notice send failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
	}
}

func failureEmbed(entry storage.AuditLog) *discordgo.MessageEmbed {
	rule, action, cause := failureDetails(entry.Details)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Rule", Value: rule, Inline: true},
		{Name: "Action", Value: action, Inline: true},
	}
	if cause != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Error", Value: cause})
	}
	return &discordgo.MessageEmbed{
		Title:       "AutoMod: Action Failed",
		Description: fmt.Sprintf("**User:** <@%s>\nCheck the bot's role position and permissions.", entry.UserID),
		Color:       colorError,
		Timestamp:   entry.CreatedAt.Format(time.RFC3339),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "User ID: " + entry.UserID},
	}
}

// failureDetails splits "rule=.. action=.. error=.." audit details. The
// error text may contain spaces and always comes last.
func failureDetails(details string) (rule, action, cause string) {
	head, cause, _ := strings.Cut(details, "error=")
	for _, field := range strings.Fields(head) {
		if v, ok := strings.CutPrefix(field, "rule="); ok {
			rule = v
		}
		if v, ok := strings.CutPrefix(field, "action="); ok {
			action = v
		}
	}
	return rule, action, cause
}

func (b *Bot) startJobs(ctx context.Context) {
	b.runEvery(ctx, b.cfg.SweepInterval(), b.sweepWindows)
	b.runEvery(ctx, b.cfg.CleanupInterval(), b.cleanupAuditLogs)
}

func (b *Bot) runEvery(ctx context.Context, interval time.Duration, job func(context.Context)) {
	if interval <= 0 {
		return
	}
	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job(ctx)
			}
		}
	}()
}

func (b *Bot) sweepWindows(ctx context.Context) {
	removed := b.detector.Sweep(time.Now())
	stats := b.detector.State().Stats()
	metrics.TrackedWindows.WithLabelValues("user").Set(float64(stats.Users))
	metrics.TrackedWindows.WithLabelValues("guild").Set(float64(stats.Guilds))
	if removed > 0 {
		b.logger.Debug("windows swept", zap.Int("removed", removed), zap.Int("users", stats.Users), zap.Int("guilds", stats.Guilds))
	}
}

func (b *Bot) cleanupAuditLogs(ctx context.Context) {
	deleted, err := b.store.CleanupAuditLogs(ctx, b.cfg.RetentionDays)
	if err != nil {
		b.logger.Warn("audit retention cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		b.logger.Info("audit logs pruned", zap.Int64("deleted", deleted), zap.Int("retention_days", b.cfg.RetentionDays))
	}
}
