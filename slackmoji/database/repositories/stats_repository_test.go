package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementAccumulates(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	require.NoError(t, stats.IncrementGiven(ctx, user.ID, "fire", 3))
	require.NoError(t, stats.IncrementGiven(ctx, user.ID, "fire", 3))
	require.NoError(t, stats.IncrementGiven(ctx, user.ID, "fire", 3))

	totals, err := stats.UserTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.GivenCount)
	assert.Equal(t, int64(9), totals.GivenScore)
	assert.Zero(t, totals.ReceivedCount)
}

func TestIncrementSeparatesGivenAndReceived(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	require.NoError(t, stats.IncrementGiven(ctx, user.ID, "fire", 2))
	require.NoError(t, stats.IncrementReceived(ctx, user.ID, "fire", 5))

	totals, err := stats.UserTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.GivenCount)
	assert.Equal(t, int64(2), totals.GivenScore)
	assert.Equal(t, int64(1), totals.ReceivedCount)
	assert.Equal(t, int64(5), totals.ReceivedScore)
}

func TestIncrementTracksFirstAndLastUsed(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	require.NoError(t, stats.IncrementGiven(ctx, user.ID, "fire", 1))
	require.NoError(t, stats.IncrementGiven(ctx, user.ID, "fire", 1))

	rows, err := stats.TopGiven(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].FirstUsed.IsZero())
	assert.False(t, rows[0].LastUsed.IsZero())
	assert.False(t, rows[0].LastUsed.Before(rows[0].FirstUsed))
}

func TestIncrementConcurrentNoLostUpdates(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	const (
		workers    = 8
		perWorker  = 25
		emojiScore = 2
	)

	// The row does not exist yet, so the first increments race through the
	// insert-then-retry path as well as the plain update path.
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				errs <- stats.IncrementGiven(ctx, user.ID, "fire", emojiScore)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	totals, err := stats.UserTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), totals.GivenCount)
	assert.Equal(t, int64(workers*perWorker*emojiScore), totals.GivenScore)
}

func TestIncrementConcurrentGivenAndReceived(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	user, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)

	const rounds = 50

	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			errs <- stats.IncrementGiven(ctx, user.ID, "fire", 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			errs <- stats.IncrementReceived(ctx, user.ID, "fire", 3)
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	totals, err := stats.UserTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(rounds), totals.GivenCount)
	assert.Equal(t, int64(rounds), totals.GivenScore)
	assert.Equal(t, int64(rounds), totals.ReceivedCount)
	assert.Equal(t, int64(rounds*3), totals.ReceivedScore)
}

func TestLeaderboardOrderingAndRanks(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	alice, err := users.Upsert(ctx, "U1", UserFields{DisplayName: strptr("alice")})
	require.NoError(t, err)
	bob, err := users.Upsert(ctx, "U2", UserFields{DisplayName: strptr("bob")})
	require.NoError(t, err)
	carol, err := users.Upsert(ctx, "U3", UserFields{DisplayName: strptr("carol")})
	require.NoError(t, err)

	require.NoError(t, stats.IncrementReceived(ctx, alice.ID, "fire", 2))
	require.NoError(t, stats.IncrementReceived(ctx, bob.ID, "fire", 5))
	require.NoError(t, stats.IncrementReceived(ctx, bob.ID, "rocket", 5))
	require.NoError(t, stats.IncrementReceived(ctx, carol.ID, "fire", 4))

	rows, err := stats.Leaderboard(ctx, SortReceivedScore, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "U2", rows[0].SlackID)
	assert.Equal(t, int64(10), rows[0].ReceivedScore)
	assert.Equal(t, "U3", rows[1].SlackID)
	assert.Equal(t, "U1", rows[2].SlackID)

	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
	}
}

func TestLeaderboardSortKeys(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	alice, err := users.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)
	bob, err := users.Upsert(ctx, "U2", UserFields{})
	require.NoError(t, err)

	// alice gives more, bob receives more.
	require.NoError(t, stats.IncrementGiven(ctx, alice.ID, "fire", 1))
	require.NoError(t, stats.IncrementGiven(ctx, alice.ID, "fire", 1))
	require.NoError(t, stats.IncrementReceived(ctx, bob.ID, "fire", 9))

	byGiven, err := stats.Leaderboard(ctx, SortGivenCount, 10)
	require.NoError(t, err)
	assert.Equal(t, "U1", byGiven[0].SlackID)

	byReceived, err := stats.Leaderboard(ctx, SortReceivedScore, 10)
	require.NoError(t, err)
	assert.Equal(t, "U2", byReceived[0].SlackID)
}

func TestLeaderboardLimit(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)
	ctx := context.Background()

	for _, id := range []string{"U1", "U2", "U3"} {
		user, err := users.Upsert(ctx, id, UserFields{})
		require.NoError(t, err)
		require.NoError(t, stats.IncrementReceived(ctx, user.ID, "fire", 1))
	}

	rows, err := stats.Leaderboard(ctx, SortReceivedScore, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseLeaderboardSort(t *testing.T) {
	assert.Equal(t, SortReceivedScore, ParseLeaderboardSort("received_score"))
	assert.Equal(t, SortReceivedCount, ParseLeaderboardSort("received_count"))
	assert.Equal(t, SortGivenScore, ParseLeaderboardSort("given_score"))
	assert.Equal(t, SortGivenCount, ParseLeaderboardSort("given_count"))
	// Unknown keys fall back to the default ordering.
	assert.Equal(t, SortReceivedScore, ParseLeaderboardSort("bogus"))
	assert.Equal(t, SortReceivedScore, ParseLeaderboardSort(""))
}
