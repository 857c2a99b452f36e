package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sentinel-automod/internal/modules/automod"
	"sentinel-automod/internal/storage"

	"github.com/dgraph-io/ristretto"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CacheConfig struct {
	MaxGuilds int64
	TTL       time.Duration
}

// Store hands out resolved per-guild automod configuration. Reads go through
// an in-memory cache in front of SQLite; guilds without a stored record get
// the defaults.
type Store struct {
	db       *storage.Store
	defaults automod.GuildConfig
	cache    *ristretto.Cache
	ttl      time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	writeMu  sync.Mutex

	// loaded runs after a cache miss has read the stored record.
	loaded func(guildID string)
}

func New(db *storage.Store, defaults automod.GuildConfig, cfg CacheConfig, logger *zap.Logger) (*Store, error) {
	if cfg.MaxGuilds <= 0 {
		cfg.MaxGuilds = 10000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxGuilds * 10,
		MaxCost:     cfg.MaxGuilds,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create settings cache: %w", err)
	}

	return &Store{
		db:       db,
		defaults: automod.Resolve(defaults, automod.DefaultGuildConfig()),
		cache:    cache,
		ttl:      cfg.TTL,
		logger:   logger,
	}, nil
}

func (s *Store) Close() {
	s.cache.Close()
}

func (s *Store) Defaults() automod.GuildConfig {
	return s.defaults.Clone()
}

// Get returns the guild's configuration, fully resolved against the defaults.
// The result must be treated as read-only.
func (s *Store) Get(ctx context.Context, guildID string) (automod.GuildConfig, error) {
	if value, ok := s.cache.Get(guildID); ok {
		return value.(automod.GuildConfig), nil
	}

	value, err, _ := s.group.Do(guildID, func() (interface{}, error) {
		// a write between load and Set would otherwise be overwritten in the
		// cache by the older row
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		cfg, err := s.load(ctx, guildID)
		if err != nil {
			return nil, err
		}
		if s.loaded != nil {
			s.loaded(guildID)
		}
		s.cache.SetWithTTL(guildID, cfg, 1, s.ttl)
		s.cache.Wait()
		return cfg, nil
	})
	if err != nil {
		return automod.GuildConfig{}, err
	}
	return value.(automod.GuildConfig), nil
}

// Update applies mutate to the current configuration and persists the
// resolved result. A mutate error aborts without writing.
func (s *Store) Update(ctx context.Context, guildID string, mutate func(*automod.GuildConfig) error) (automod.GuildConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.load(ctx, guildID)
	if err != nil {
		return automod.GuildConfig{}, err
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return automod.GuildConfig{}, err
	}
	next = automod.Resolve(next, s.defaults)

	payload, err := json.Marshal(next)
	if err != nil {
		return automod.GuildConfig{}, fmt.Errorf("encode automod settings: %w", err)
	}
	if err := s.db.UpsertAutomodSettings(ctx, storage.AutomodSettings{GuildID: guildID, Config: payload, UpdatedAt: time.Now()}); err != nil {
		return automod.GuildConfig{}, fmt.Errorf("save automod settings: %w", err)
	}

	s.cache.SetWithTTL(guildID, next, 1, s.ttl)
	s.cache.Wait()
	return next, nil
}

// Reset drops the stored record so the guild falls back to the defaults.
func (s *Store) Reset(ctx context.Context, guildID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.DeleteAutomodSettings(ctx, guildID); err != nil {
		return fmt.Errorf("delete automod settings: %w", err)
	}
	s.cache.Del(guildID)
	return nil
}

func (s *Store) load(ctx context.Context, guildID string) (automod.GuildConfig, error) {
	record, found, err := s.db.GetAutomodSettings(ctx, guildID)
	if err != nil {
		return automod.GuildConfig{}, fmt.Errorf("load automod settings: %w", err)
	}
	if !found {
		return s.defaults.Clone(), nil
	}

	// decode on top of the defaults so missing keys keep their default value
	cfg := s.defaults.Clone()
	if err := json.Unmarshal(record.Config, &cfg); err != nil {
		s.logger.Warn("automod settings unreadable, using defaults", zap.String("guild_id", guildID), zap.Error(err))
		return s.defaults.Clone(), nil
	}
	return automod.Resolve(cfg, s.defaults), nil
}
