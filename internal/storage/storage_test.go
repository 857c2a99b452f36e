package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())
	return store
}

func TestMigrateIsRepeatable(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Migrate())
}

func TestUpsertAutomodSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.GetAutomodSettings(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.UpsertAutomodSettings(ctx, AutomodSettings{GuildID: "g1", Config: []byte(`{"log_channel_id":"c1"}`)}))
	require.NoError(t, store.UpsertAutomodSettings(ctx, AutomodSettings{GuildID: "g1", Config: []byte(`{"log_channel_id":"c2"}`)}))

	got, found, err := store.GetAutomodSettings(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"log_channel_id":"c2"}`, string(got.Config))
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.DeleteAutomodSettings(ctx, "g1"))
	_, found, err = store.GetAutomodSettings(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAuditLogsAndCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, store.AddAuditLog(ctx, AuditLog{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "automod_timeout", CreatedAt: old}))
	require.NoError(t, store.AddAuditLog(ctx, AuditLog{GuildID: "g1", UserID: "u2", Level: "WARN", Event: "automod_delete", CreatedAt: time.Now()}))
	require.NoError(t, store.AddAuditLog(ctx, AuditLog{GuildID: "g2", UserID: "u3", Level: "INFO", Event: "automod_warn", CreatedAt: time.Now()}))

	logs, err := store.ListAuditLogs(ctx, "g1", old.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "automod_delete", logs[0].Event)

	removed, err := store.CleanupAuditLogs(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	logs, err = store.ListAuditLogs(ctx, "g1", old.Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestIncrementInfraction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.IncrementInfraction(ctx, "g1", "u1", "spam", "timeout", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = store.IncrementInfraction(ctx, "g1", "u1", "spam", "kick", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	_, err = store.IncrementInfraction(ctx, "g1", "u1", "links", "delete", 0)
	require.NoError(t, err)

	all, err := store.ListInfractions(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "links", all[0].Category)
	assert.Nil(t, all[0].ResetAt)
	assert.Equal(t, "spam", all[1].Category)
	assert.Equal(t, 2, all[1].CountTotal)
	assert.Equal(t, "kick", all[1].LastAction)
	require.NotNil(t, all[1].ResetAt)

	missing, err := store.ListInfractions(ctx, "g1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
