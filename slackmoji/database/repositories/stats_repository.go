package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/slackmoji/slackmoji/slackmoji/database/models"
	"github.com/uptrace/bun"
)

// LeaderboardSort is the closed set of supported leaderboard orderings. Each
// key maps to a fixed aggregation expression; unrecognized input normalizes
// to the default instead of failing.
type LeaderboardSort int

const (
	SortReceivedScore LeaderboardSort = iota
	SortReceivedCount
	SortGivenScore
	SortGivenCount
)

func ParseLeaderboardSort(s string) LeaderboardSort {
	switch s {
	case "received_count":
		return SortReceivedCount
	case "given_score":
		return SortGivenScore
	case "given_count":
		return SortGivenCount
	default:
		return SortReceivedScore
	}
}

func (s LeaderboardSort) String() string {
	switch s {
	case SortReceivedCount:
		return "received_count"
	case SortGivenScore:
		return "given_score"
	case SortGivenCount:
		return "given_count"
	default:
		return "received_score"
	}
}

func (s LeaderboardSort) orderExpr() string {
	switch s {
	case SortReceivedCount:
		return "SUM(es.received_count)"
	case SortGivenScore:
		return "SUM(es.given_score)"
	case SortGivenCount:
		return "SUM(es.given_count)"
	default:
		return "SUM(es.received_score)"
	}
}

// LeaderboardRow is one ranked user with all four counters summed across
// every emoji.
type LeaderboardRow struct {
	Rank          int    `bun:"-"`
	SlackID       string `bun:"slack_id"`
	DisplayName   string `bun:"display_name"`
	RealName      string `bun:"real_name"`
	GivenCount    int64  `bun:"given_count"`
	GivenScore    int64  `bun:"given_score"`
	ReceivedCount int64  `bun:"received_count"`
	ReceivedScore int64  `bun:"received_score"`
}

type UserTotals struct {
	GivenCount    int64 `bun:"given_count"`
	GivenScore    int64 `bun:"given_score"`
	ReceivedCount int64 `bun:"received_count"`
	ReceivedScore int64 `bun:"received_score"`
}

type StatsRepository interface {
	IncrementGiven(ctx context.Context, userID int64, emojiName string, score int) error
	IncrementReceived(ctx context.Context, userID int64, emojiName string, score int) error
	Leaderboard(ctx context.Context, sort LeaderboardSort, limit int) ([]LeaderboardRow, error)
	UserTotals(ctx context.Context, userID int64) (*UserTotals, error)
	TopGiven(ctx context.Context, userID int64, limit int) ([]*models.EmojiStat, error)
	TopReceived(ctx context.Context, userID int64, limit int) ([]*models.EmojiStat, error)
	WithTx(tx bun.Tx) StatsRepository
}

type statsRepository struct {
	db bun.IDB
}

func NewStatsRepository(db *bun.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) WithTx(tx bun.Tx) StatsRepository {
	return &statsRepository{db: tx}
}

func (r *statsRepository) IncrementGiven(ctx context.Context, userID int64, emojiName string, score int) error {
	return r.increment(ctx, userID, emojiName, score, false)
}

func (r *statsRepository) IncrementReceived(ctx context.Context, userID int64, emojiName string, score int) error {
	return r.increment(ctx, userID, emojiName, score, true)
}

// increment applies one occurrence to the (user, emoji) counters. The update
// is a relative SET (x = x + ?) so concurrent increments to the same pair
// cannot lose each other; row creation races resolve through the unique
// constraint on (user_id, emoji_name).
func (r *statsRepository) increment(ctx context.Context, userID int64, emojiName string, score int, received bool) error {
	now := time.Now()

	rows, err := r.tryIncrement(ctx, userID, emojiName, score, received, now)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	// No row yet for this pair: seed one carrying this occurrence.
	stat := &models.EmojiStat{
		UserID:    userID,
		EmojiName: emojiName,
		FirstUsed: now,
		LastUsed:  now,
		UpdatedAt: now,
	}
	if received {
		stat.ReceivedCount = 1
		stat.ReceivedScore = int64(score)
	} else {
		stat.GivenCount = 1
		stat.GivenScore = int64(score)
	}

	res, err := r.db.NewInsert().
		Model(stat).
		On("CONFLICT (user_id, emoji_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert emoji stat: %w", err)
	}
	if inserted, _ := res.RowsAffected(); inserted > 0 {
		return nil
	}

	// A concurrent recorder created the row between our update and insert;
	// the relative update now has a target.
	rows, err = r.tryIncrement(ctx, userID, emojiName, score, received, now)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("emoji stat row for user %d emoji %q vanished during increment", userID, emojiName)
	}
	return nil
}

func (r *statsRepository) tryIncrement(ctx context.Context, userID int64, emojiName string, score int, received bool, now time.Time) (int64, error) {
	q := r.db.NewUpdate().
		Model((*models.EmojiStat)(nil)).
		Set("last_used = ?", now).
		Set("updated_at = ?", now).
		Where("user_id = ? AND emoji_name = ?", userID, emojiName)

	if received {
		q = q.
			Set("received_count = received_count + 1").
			Set("received_score = received_score + ?", score)
	} else {
		q = q.
			Set("given_count = given_count + 1").
			Set("given_score = given_score + ?", score)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to increment emoji stat: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func (r *statsRepository) Leaderboard(ctx context.Context, sort LeaderboardSort, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.db.NewSelect().
		Model((*models.EmojiStat)(nil)).
		ColumnExpr("u.slack_id AS slack_id").
		ColumnExpr("u.display_name AS display_name").
		ColumnExpr("u.real_name AS real_name").
		ColumnExpr("SUM(es.given_count) AS given_count").
		ColumnExpr("SUM(es.given_score) AS given_score").
		ColumnExpr("SUM(es.received_count) AS received_count").
		ColumnExpr("SUM(es.received_score) AS received_score").
		Join("JOIN users AS u ON u.id = es.user_id").
		GroupExpr("u.id, u.slack_id, u.display_name, u.real_name").
		OrderExpr(sort.orderExpr() + " DESC, u.slack_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (r *statsRepository) UserTotals(ctx context.Context, userID int64) (*UserTotals, error) {
	totals := new(UserTotals)
	err := r.db.NewSelect().
		Model((*models.EmojiStat)(nil)).
		ColumnExpr("COALESCE(SUM(es.given_count), 0) AS given_count").
		ColumnExpr("COALESCE(SUM(es.given_score), 0) AS given_score").
		ColumnExpr("COALESCE(SUM(es.received_count), 0) AS received_count").
		ColumnExpr("COALESCE(SUM(es.received_score), 0) AS received_score").
		Where("es.user_id = ?", userID).
		Scan(ctx, totals)
	if err != nil {
		return nil, fmt.Errorf("failed to query user totals: %w", err)
	}
	return totals, nil
}

func (r *statsRepository) TopGiven(ctx context.Context, userID int64, limit int) ([]*models.EmojiStat, error) {
	var stats []*models.EmojiStat
	err := r.db.NewSelect().
		Model(&stats).
		Where("user_id = ?", userID).
		Where("given_count > 0").
		Order("given_score DESC").
		Limit(limit).
		Scan(ctx)
	return stats, err
}

func (r *statsRepository) TopReceived(ctx context.Context, userID int64, limit int) ([]*models.EmojiStat, error) {
	var stats []*models.EmojiStat
	err := r.db.NewSelect().
		Model(&stats).
		Where("user_id = ?", userID).
		Where("received_count > 0").
		Order("received_score DESC").
		Limit(limit).
		Scan(ctx)
	return stats, err
}
