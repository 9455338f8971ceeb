package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mthleonn/bot-auge/internal/db"
	"github.com/mthleonn/bot-auge/internal/models"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database.Gorm()
}

func setJoinedAt(t *testing.T, gdb *gorm.DB, userID int64, at time.Time) {
	t.Helper()
	err := gdb.Model(&models.User{}).Where("user_id = ?", userID).Update("joined_at", at).Error
	require.NoError(t, err)
}

func TestUserUpsertPreservesJoinedAt(t *testing.T) {
	gdb := newTestDB(t)
	store := NewUserStore(gdb)
	ctx := context.Background()

	info := repository.MemberInfo{UserID: 1, Username: "ana", FirstName: "Ana"}
	require.NoError(t, store.Upsert(ctx, info))

	first, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first)

	info.Username = "ana_trader"
	require.NoError(t, store.Upsert(ctx, info))

	second, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "ana_trader", second.Username)
	assert.True(t, second.JoinedAt.Equal(first.JoinedAt), "joined_at must survive upserts")
}

func TestUserGetByIDNotFound(t *testing.T) {
	store := NewUserStore(newTestDB(t))

	user, err := store.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSetFunnelStepStampsLastMessage(t *testing.T) {
	gdb := newTestDB(t)
	store := NewUserStore(gdb)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: 1, FirstName: "Ana"}))
	require.NoError(t, store.SetFunnelStep(ctx, 1, 1))

	user, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 1, user.FunnelStep)
	require.NotNil(t, user.LastFunnelMessage)
	assert.WithinDuration(t, time.Now(), *user.LastFunnelMessage, 5*time.Second)
}

func TestSetFunnelStepUnknownUser(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	assert.Error(t, store.SetFunnelStep(context.Background(), 404, 1))
}

func TestEligibleForStepFirstStage(t *testing.T) {
	gdb := newTestDB(t)
	store := NewUserStore(gdb)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: 1, FirstName: "Velha"}))
	require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: 2, FirstName: "Nova"}))
	setJoinedAt(t, gdb, 1, time.Now().Add(-25*time.Hour))
	setJoinedAt(t, gdb, 2, time.Now().Add(-23*time.Hour))

	eligible, err := store.EligibleForStep(ctx, 0, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, int64(1), eligible[0].UserID)
}

func TestEligibleForStepLaterStage(t *testing.T) {
	gdb := newTestDB(t)
	store := NewUserStore(gdb)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: 1}))
	require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: 2}))
	require.NoError(t, store.SetFunnelStep(ctx, 1, 1))
	require.NoError(t, store.SetFunnelStep(ctx, 2, 1))

	past := time.Now().Add(-49 * time.Hour)
	err := gdb.Model(&models.User{}).Where("user_id = ?", 1).
		Update("last_funnel_message", past).Error
	require.NoError(t, err)

	eligible, err := store.EligibleForStep(ctx, 1, 48*time.Hour)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, int64(1), eligible[0].UserID)
}

func TestEligibleForStepSkipsInactive(t *testing.T) {
	gdb := newTestDB(t)
	store := NewUserStore(gdb)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: 1}))
	setJoinedAt(t, gdb, 1, time.Now().Add(-48*time.Hour))
	require.NoError(t, store.Deactivate(ctx, 1))

	eligible, err := store.EligibleForStep(ctx, 0, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestCountersAndDistribution(t *testing.T) {
	gdb := newTestDB(t)
	store := NewUserStore(gdb)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		require.NoError(t, store.Upsert(ctx, repository.MemberInfo{UserID: id}))
	}
	require.NoError(t, store.SetFunnelStep(ctx, 3, 1))

	total, err := store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	joined, err := store.CountJoinedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), joined)

	dist, err := store.FunnelDistribution(ctx)
	require.NoError(t, err)
	counts := make(map[int]int64)
	for _, fc := range dist {
		counts[fc.FunnelStep] = fc.Count
	}
	assert.Equal(t, int64(2), counts[0])
	assert.Equal(t, int64(1), counts[1])
}

func TestLinkStoreRoundTrip(t *testing.T) {
	gdb := newTestDB(t)
	store := NewLinkStore(gdb)
	ctx := context.Background()

	clicks := []models.LinkClick{
		{UserID: 1, LinkID: "aaa", URL: "https://a.com", Domain: "a.com", LinkType: "external", ChatID: 100},
		{UserID: 1, LinkID: "aaa", URL: "https://a.com", Domain: "a.com", LinkType: "external", ChatID: 100},
		{UserID: 2, LinkID: "bbb", URL: "https://bit.ly/x", Domain: "bit.ly", LinkType: "suspicious", ChatID: 100},
	}
	for _, c := range clicks {
		require.NoError(t, store.RecordClick(ctx, c))
	}

	stats, err := store.ClickStats(ctx, "", 7)
	require.NoError(t, err)
	byType := make(map[string]models.LinkTypeStats)
	for _, s := range stats {
		byType[s.LinkType] = s
	}
	assert.Equal(t, int64(2), byType["external"].Clicks)
	assert.Equal(t, int64(1), byType["external"].UniqueUsers)
	assert.Equal(t, int64(1), byType["suspicious"].Clicks)

	count, err := store.CountForUserSince(ctx, 1, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	listed, err := store.ListSince(ctx, 100, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestLinkStoreDeleteOlderThan(t *testing.T) {
	gdb := newTestDB(t)
	store := NewLinkStore(gdb)
	ctx := context.Background()

	old := models.LinkClick{UserID: 1, LinkType: "external", ClickedAt: time.Now().AddDate(0, 0, -40)}
	fresh := models.LinkClick{UserID: 1, LinkType: "external"}
	require.NoError(t, store.RecordClick(ctx, old))
	require.NoError(t, store.RecordClick(ctx, fresh))

	deleted, err := store.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := store.CountForUserSince(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}

func TestSettingStore(t *testing.T) {
	gdb := newTestDB(t)
	store := NewSettingStore(gdb)
	ctx := context.Background()

	val, err := store.Get(ctx, "missing_key")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, store.Set(ctx, "meeting_link", "https://meet.google.com/abc"))
	require.NoError(t, store.Set(ctx, "meeting_link", "https://meet.google.com/xyz"))

	val, err = store.Get(ctx, "meeting_link")
	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/xyz", val)
}
