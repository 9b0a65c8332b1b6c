package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/slackmoji/slackmoji/slackmoji/database/models"
	"github.com/uptrace/bun"
)

type ChannelFields struct {
	Name       *string
	IsPrivate  *bool
	IsArchived *bool
}

type ChannelRepository interface {
	Upsert(ctx context.Context, slackID string, fields ChannelFields) (*models.Channel, error)
	GetBySlackID(ctx context.Context, slackID string) (*models.Channel, error)
	List(ctx context.Context, limit, offset int) ([]*models.Channel, error)
	Count(ctx context.Context) (int, error)
	WithTx(tx bun.Tx) ChannelRepository
}

type channelRepository struct {
	db bun.IDB
}

func NewChannelRepository(db *bun.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) WithTx(tx bun.Tx) ChannelRepository {
	return &channelRepository{db: tx}
}

func (r *channelRepository) Upsert(ctx context.Context, slackID string, fields ChannelFields) (*models.Channel, error) {
	channel, err := r.GetBySlackID(ctx, slackID)
	if err == nil {
		applyChannelFields(channel, fields)
		channel.UpdatedAt = time.Now()
		if _, err := r.db.NewUpdate().Model(channel).WherePK().Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to update channel %s: %w", slackID, err)
		}
		return channel, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now()
	channel = &models.Channel{
		SlackID:   slackID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyChannelFields(channel, fields)

	res, err := r.db.NewInsert().
		Model(channel).
		On("CONFLICT (slack_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert channel %s: %w", slackID, err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		existing, err := r.GetBySlackID(ctx, slackID)
		if err != nil {
			return nil, err
		}
		applyChannelFields(existing, fields)
		existing.UpdatedAt = now
		if _, err := r.db.NewUpdate().Model(existing).WherePK().Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to update channel %s: %w", slackID, err)
		}
		return existing, nil
	}

	return channel, nil
}

func applyChannelFields(channel *models.Channel, fields ChannelFields) {
	if fields.Name != nil {
		channel.Name = *fields.Name
	}
	if fields.IsPrivate != nil {
		channel.IsPrivate = *fields.IsPrivate
	}
	if fields.IsArchived != nil {
		channel.IsArchived = *fields.IsArchived
	}
}

func (r *channelRepository) GetBySlackID(ctx context.Context, slackID string) (*models.Channel, error) {
	channel := new(models.Channel)
	err := r.db.NewSelect().
		Model(channel).
		Where("slack_id = ?", slackID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (r *channelRepository) List(ctx context.Context, limit, offset int) ([]*models.Channel, error) {
	var channels []*models.Channel
	err := r.db.NewSelect().
		Model(&channels).
		Where("is_archived = ?", false).
		Order("slack_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return channels, err
}

func (r *channelRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*models.Channel)(nil)).
		Where("is_archived = ?", false).
		Count(ctx)
}
