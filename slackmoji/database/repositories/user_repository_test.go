package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserUpsertCreates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.Upsert(ctx, "U123", UserFields{
		DisplayName: strptr("jane"),
		Email:       strptr("jane@example.com"),
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "U123", user.SlackID)
	assert.Equal(t, "jane", user.DisplayName)
	assert.True(t, user.IsActive)
}

func TestUserUpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, "U123", UserFields{DisplayName: strptr("jane")})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, "U123", UserFields{RealName: strptr("Jane Doe")})
	require.NoError(t, err)

	// Same row, fields accumulate across calls.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "jane", second.DisplayName)
	assert.Equal(t, "Jane Doe", second.RealName)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserUpsertConcurrentSameSlackID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	const workers = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Upsert(ctx, "U123", UserFields{DisplayName: strptr("jane")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// All racers converge on a single row.
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserUpsertDoesNotEraseFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, "U123", UserFields{
		DisplayName: strptr("jane"),
		Email:       strptr("jane@example.com"),
	})
	require.NoError(t, err)

	user, err := repo.Upsert(ctx, "U123", UserFields{})
	require.NoError(t, err)
	assert.Equal(t, "jane", user.DisplayName)
	assert.Equal(t, "jane@example.com", user.Email)
}

func TestUserListExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, "U1", UserFields{})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, "U2", UserFields{IsActive: boolptr(false)})
	require.NoError(t, err)

	users, err := repo.List(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "U1", users[0].SlackID)
}

func TestUserGetBySlackIDMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetBySlackID(context.Background(), "U404")
	assert.Error(t, err)
}

func TestChannelUpsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, "C1", ChannelFields{Name: strptr("general")})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, "C1", ChannelFields{Name: strptr("general-renamed")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "general-renamed", second.Name)

	_, err = repo.Upsert(ctx, "C2", ChannelFields{IsArchived: boolptr(true)})
	require.NoError(t, err)

	channels, err := repo.List(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "C1", channels[0].SlackID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
