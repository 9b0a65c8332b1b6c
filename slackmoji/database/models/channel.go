package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Channel is the identity record for a Slack conversation. Same lazy
// create/update lifecycle as User.
type Channel struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	ID         int64  `bun:"id,pk,autoincrement"`
	SlackID    string `bun:"slack_id,notnull,unique"`
	Name       string `bun:"name,nullzero"`
	IsPrivate  bool   `bun:"is_private,notnull,default:false"`
	IsArchived bool   `bun:"is_archived,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
