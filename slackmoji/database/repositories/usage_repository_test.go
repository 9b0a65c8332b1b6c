package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/slackmoji/slackmoji/slackmoji/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertUsage(t *testing.T, repo UsageRepository, userID, channelID int64, emojiName string, score int, createdAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &models.EmojiUsage{
		UserID:     userID,
		ChannelID:  channelID,
		EmojiName:  emojiName,
		EmojiScore: score,
		UsageType:  models.UsageMessage,
		CreatedAt:  createdAt,
	}))
}

func TestHistoryPagination(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	usages := NewUsageRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		insertUsage(t, usages, user.ID, 0, "fire", 1, base.Add(time.Duration(i)*time.Minute))
	}

	total, err := usages.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	// Newest first.
	page, err := usages.HistoryByUser(ctx, user.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	lastPage, err := usages.HistoryByUser(ctx, user.ID, 2, 4)
	require.NoError(t, err)
	assert.Len(t, lastPage, 1)

	empty, err := usages.HistoryByUser(ctx, user.ID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChannelTotalsAndTopEmojis(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	channels := NewChannelRepository(db)
	usages := NewUsageRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{DisplayName: strptr("jane")})
	require.NoError(t, err)
	channel, err := channels.Upsert(ctx, "C1", ChannelFields{})
	require.NoError(t, err)
	other, err := channels.Upsert(ctx, "C2", ChannelFields{})
	require.NoError(t, err)

	now := time.Now()
	insertUsage(t, usages, user.ID, channel.ID, "fire", 3, now)
	insertUsage(t, usages, user.ID, channel.ID, "fire", 3, now)
	insertUsage(t, usages, user.ID, channel.ID, "rocket", 2, now)
	insertUsage(t, usages, user.ID, other.ID, "wave", 1, now)

	totals, err := usages.ChannelTotals(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.TotalCount)
	assert.Equal(t, int64(8), totals.TotalScore)

	topEmojis, err := usages.TopEmojisInChannel(ctx, channel.ID, 10)
	require.NoError(t, err)
	require.Len(t, topEmojis, 2)
	assert.Equal(t, "fire", topEmojis[0].Emoji)
	assert.Equal(t, int64(2), topEmojis[0].Count)
	assert.Equal(t, int64(6), topEmojis[0].Score)

	topUsers, err := usages.TopUsersInChannel(ctx, channel.ID, 10)
	require.NoError(t, err)
	require.Len(t, topUsers, 1)
	assert.Equal(t, "U1", topUsers[0].SlackID)
	assert.Equal(t, int64(3), topUsers[0].Count)
	assert.Equal(t, int64(8), topUsers[0].Score)
}

func TestGlobalTotals(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	usages := NewUsageRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	now := time.Now()
	insertUsage(t, usages, user.ID, 0, "fire", 3, now)
	insertUsage(t, usages, user.ID, 0, "fire", 3, now)
	insertUsage(t, usages, user.ID, 0, "rocket", 2, now)

	totals, err := usages.GlobalTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.TotalCount)
	assert.Equal(t, int64(8), totals.TotalScore)
	assert.Equal(t, int64(2), totals.UniqueEmojis)

	top, err := usages.TopEmojis(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "fire", top[0].Emoji)
}

func TestGlobalTotalsEmpty(t *testing.T) {
	db := setupTestDB(t)
	usages := NewUsageRepository(db)

	totals, err := usages.GlobalTotals(context.Background())
	require.NoError(t, err)
	assert.Zero(t, totals.TotalCount)
	assert.Zero(t, totals.TotalScore)
}
