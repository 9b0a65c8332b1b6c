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

// UserFields carries the optional profile fields of an identity upsert. Nil
// pointers mean "not supplied": they never erase a stored value.
type UserFields struct {
	Email       *string
	DisplayName *string
	RealName    *string
	IsBot       *bool
	IsActive    *bool
}

type UserRepository interface {
	Upsert(ctx context.Context, slackID string, fields UserFields) (*models.User, error)
	GetBySlackID(ctx context.Context, slackID string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	WithTx(tx bun.Tx) UserRepository
}

type userRepository struct {
	db bun.IDB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx bun.Tx) UserRepository {
	return &userRepository{db: tx}
}

// Upsert finds the user by slack_id, creating the row when absent. A
// concurrent insert of the same slack_id loses against the unique constraint
// and falls back to updating the winner, so callers never see duplicates.
func (r *userRepository) Upsert(ctx context.Context, slackID string, fields UserFields) (*models.User, error) {
	user, err := r.GetBySlackID(ctx, slackID)
	if err == nil {
		applyUserFields(user, fields)
		user.UpdatedAt = time.Now()
		if _, err := r.db.NewUpdate().Model(user).WherePK().Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to update user %s: %w", slackID, err)
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now()
	user = &models.User{
		SlackID:   slackID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyUserFields(user, fields)

	res, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (slack_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user %s: %w", slackID, err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		// Lost the race to a concurrent insert; patch the winner instead.
		existing, err := r.GetBySlackID(ctx, slackID)
		if err != nil {
			return nil, err
		}
		applyUserFields(existing, fields)
		existing.UpdatedAt = now
		if _, err := r.db.NewUpdate().Model(existing).WherePK().Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to update user %s: %w", slackID, err)
		}
		return existing, nil
	}

	return user, nil
}

func applyUserFields(user *models.User, fields UserFields) {
	if fields.Email != nil {
		user.Email = *fields.Email
	}
	if fields.DisplayName != nil {
		user.DisplayName = *fields.DisplayName
	}
	if fields.RealName != nil {
		user.RealName = *fields.RealName
	}
	if fields.IsBot != nil {
		user.IsBot = *fields.IsBot
	}
	if fields.IsActive != nil {
		user.IsActive = *fields.IsActive
	}
}

func (r *userRepository) GetBySlackID(ctx context.Context, slackID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("slack_id = ?", slackID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Where("is_active = ?", true).
		Order("slack_id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("is_active = ?", true).
		Count(ctx)
}
