package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the identity record for a Slack workspace member. Rows are created
// lazily on the first event that involves the user and are never hard-deleted;
// departures only flip is_active.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          int64  `bun:"id,pk,autoincrement"`
	SlackID     string `bun:"slack_id,notnull,unique"`
	Email       string `bun:"email,nullzero"`
	DisplayName string `bun:"display_name,nullzero"`
	RealName    string `bun:"real_name,nullzero"`
	IsBot       bool   `bun:"is_bot,notnull,default:false"`
	IsActive    bool   `bun:"is_active,notnull,default:true"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
