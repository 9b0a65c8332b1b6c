package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/slackmoji/slackmoji/slackmoji/database/models"
	"github.com/uptrace/bun"
)

// EmojiCount is an aggregated (emoji, occurrences, score) tuple.
type EmojiCount struct {
	Emoji string `bun:"emoji_name"`
	Count int64  `bun:"count"`
	Score int64  `bun:"score"`
}

// UserCount is an aggregated per-user contribution within a channel.
type UserCount struct {
	SlackID     string `bun:"slack_id"`
	DisplayName string `bun:"display_name"`
	Count       int64  `bun:"count"`
	Score       int64  `bun:"score"`
}

type ChannelTotals struct {
	TotalCount int64 `bun:"total_count"`
	TotalScore int64 `bun:"total_score"`
}

type GlobalTotals struct {
	TotalCount   int64 `bun:"total_count"`
	TotalScore   int64 `bun:"total_score"`
	UniqueEmojis int64 `bun:"unique_emojis"`
}

type UsageRepository interface {
	Insert(ctx context.Context, usage *models.EmojiUsage) error
	HistoryByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.EmojiUsage, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	ChannelTotals(ctx context.Context, channelID int64) (*ChannelTotals, error)
	TopEmojisInChannel(ctx context.Context, channelID int64, limit int) ([]EmojiCount, error)
	TopUsersInChannel(ctx context.Context, channelID int64, limit int) ([]UserCount, error)
	GlobalTotals(ctx context.Context) (*GlobalTotals, error)
	TopEmojis(ctx context.Context, limit int) ([]EmojiCount, error)
	WithTx(tx bun.Tx) UsageRepository
}

type usageRepository struct {
	db bun.IDB
}

func NewUsageRepository(db *bun.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) WithTx(tx bun.Tx) UsageRepository {
	return &usageRepository{db: tx}
}

// Insert appends one row to the usage log. Rows are never updated or deleted
// afterwards.
func (r *usageRepository) Insert(ctx context.Context, usage *models.EmojiUsage) error {
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now()
	}
	if _, err := r.db.NewInsert().Model(usage).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert emoji usage: %w", err)
	}
	return nil
}

func (r *usageRepository) HistoryByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.EmojiUsage, error) {
	var usages []*models.EmojiUsage
	err := r.db.NewSelect().
		Model(&usages).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return usages, err
}

func (r *usageRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	return r.db.NewSelect().
		Model((*models.EmojiUsage)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}

func (r *usageRepository) ChannelTotals(ctx context.Context, channelID int64) (*ChannelTotals, error) {
	totals := new(ChannelTotals)
	err := r.db.NewSelect().
		Model((*models.EmojiUsage)(nil)).
		ColumnExpr("COUNT(*) AS total_count").
		ColumnExpr("COALESCE(SUM(eu.emoji_score), 0) AS total_score").
		Where("eu.channel_id = ?", channelID).
		Scan(ctx, totals)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel totals: %w", err)
	}
	return totals, nil
}

func (r *usageRepository) TopEmojisInChannel(ctx context.Context, channelID int64, limit int) ([]EmojiCount, error) {
	var rows []EmojiCount
	err := r.db.NewSelect().
		Model((*models.EmojiUsage)(nil)).
		ColumnExpr("eu.emoji_name AS emoji_name").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("SUM(eu.emoji_score) AS score").
		Where("eu.channel_id = ?", channelID).
		GroupExpr("eu.emoji_name").
		OrderExpr("SUM(eu.emoji_score) DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query top emojis for channel: %w", err)
	}
	return rows, nil
}

func (r *usageRepository) TopUsersInChannel(ctx context.Context, channelID int64, limit int) ([]UserCount, error) {
	var rows []UserCount
	err := r.db.NewSelect().
		Model((*models.EmojiUsage)(nil)).
		ColumnExpr("u.slack_id AS slack_id").
		ColumnExpr("u.display_name AS display_name").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("SUM(eu.emoji_score) AS score").
		Join("JOIN users AS u ON u.id = eu.user_id").
		Where("eu.channel_id = ?", channelID).
		GroupExpr("u.id, u.slack_id, u.display_name").
		OrderExpr("SUM(eu.emoji_score) DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users for channel: %w", err)
	}
	return rows, nil
}

func (r *usageRepository) GlobalTotals(ctx context.Context) (*GlobalTotals, error) {
	totals := new(GlobalTotals)
	err := r.db.NewSelect().
		Model((*models.EmojiUsage)(nil)).
		ColumnExpr("COUNT(*) AS total_count").
		ColumnExpr("COALESCE(SUM(eu.emoji_score), 0) AS total_score").
		ColumnExpr("COUNT(DISTINCT eu.emoji_name) AS unique_emojis").
		Scan(ctx, totals)
	if err != nil {
		return nil, fmt.Errorf("failed to query global totals: %w", err)
	}
	return totals, nil
}

func (r *usageRepository) TopEmojis(ctx context.Context, limit int) ([]EmojiCount, error) {
	var rows []EmojiCount
	err := r.db.NewSelect().
		Model((*models.EmojiUsage)(nil)).
		ColumnExpr("eu.emoji_name AS emoji_name").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("SUM(eu.emoji_score) AS score").
		GroupExpr("eu.emoji_name").
		OrderExpr("SUM(eu.emoji_score) DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query top emojis: %w", err)
	}
	return rows, nil
}
