package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel-automod/internal/modules/automod"
	"sentinel-automod/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSettings(t *testing.T, defaults automod.GuildConfig) (*Store, *storage.Store) {
	t.Helper()
	db, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate())

	store, err := New(db, defaults, CacheConfig{MaxGuilds: 100}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store, db
}

func TestGetReturnsDefaultsForUnknownGuild(t *testing.T) {
	store, _ := newTestSettings(t, automod.DefaultGuildConfig())
	cfg, err := store.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, automod.Resolve(automod.DefaultGuildConfig(), automod.DefaultGuildConfig()), cfg)
}

func TestUpdatePersistsResolvedConfig(t *testing.T) {
	store, db := newTestSettings(t, automod.DefaultGuildConfig())
	ctx := context.Background()

	updated, err := store.Update(ctx, "g1", func(cfg *automod.GuildConfig) error {
		cfg.Links.Enabled = true
		cfg.Links.Blacklist = []string{" Bad.COM "}
		cfg.Spam.MaxMessages = -3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.com"}, updated.Links.Blacklist)
	assert.Equal(t, 5, updated.Spam.MaxMessages)

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	record, found, err := db.GetAutomodSettings(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(record.Config), `"link_filter"`)
}

func TestUpdateErrorDoesNotWrite(t *testing.T) {
	store, db := newTestSettings(t, automod.DefaultGuildConfig())
	ctx := context.Background()

	_, err := store.Update(ctx, "g1", func(cfg *automod.GuildConfig) error {
		cfg.Spam.Enabled = false
		return errors.New("invalid action")
	})
	require.Error(t, err)

	_, found, err := db.GetAutomodSettings(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMissingKeysKeepDefaults(t *testing.T) {
	defaults := automod.DefaultGuildConfig()
	defaults.Raid.JoinThreshold = 9
	store, db := newTestSettings(t, defaults)
	ctx := context.Background()

	require.NoError(t, db.UpsertAutomodSettings(ctx, storage.AutomodSettings{
		GuildID: "g1",
		Config:  []byte(`{"spam_detection":{"enabled":false},"raid_protection":{"action":"ban"}}`),
	}))

	cfg, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, cfg.Spam.Enabled)
	assert.Equal(t, 5, cfg.Spam.MaxMessages)
	assert.Equal(t, automod.ActionBan, cfg.Raid.Action)
	assert.Equal(t, 9, cfg.Raid.JoinThreshold)
}

func TestCorruptRecordFallsBackToDefaults(t *testing.T) {
	store, db := newTestSettings(t, automod.DefaultGuildConfig())
	ctx := context.Background()
	require.NoError(t, db.UpsertAutomodSettings(ctx, storage.AutomodSettings{GuildID: "g1", Config: []byte(`{not json`)}))

	cfg, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, store.Defaults(), cfg)
}

func TestResetRestoresDefaults(t *testing.T) {
	store, _ := newTestSettings(t, automod.DefaultGuildConfig())
	ctx := context.Background()

	_, err := store.Update(ctx, "g1", func(cfg *automod.GuildConfig) error {
		cfg.LogChannelID = "c1"
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx, "g1"))

	cfg, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, cfg.LogChannelID)
}

func TestDefaultsAreNotShared(t *testing.T) {
	defaults := automod.DefaultGuildConfig()
	defaults.BadWords.Words = []string{"heck"}
	store, _ := newTestSettings(t, defaults)
	ctx := context.Background()

	_, err := store.Update(ctx, "g1", func(cfg *automod.GuildConfig) error {
		cfg.BadWords.Words[0] = "darn"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"heck"}, store.Defaults().BadWords.Words)
}

func TestGetDoesNotCacheConfigOverwrittenByUpdate(t *testing.T) {
	store, _ := newTestSettings(t, automod.DefaultGuildConfig())
	ctx := context.Background()

	updated := make(chan struct{})
	store.loaded = func(string) {
		store.loaded = nil
		go func() {
			defer close(updated)
			_, err := store.Update(ctx, "g1", func(cfg *automod.GuildConfig) error {
				cfg.Spam.MaxMessages = 9
				return nil
			})
			assert.NoError(t, err)
		}()
		select {
		case <-updated:
		case <-time.After(50 * time.Millisecond):
		}
	}

	cfg, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Spam.MaxMessages)

	<-updated
	cfg, err = store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Spam.MaxMessages)
}
