package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UsageType string

const (
	UsageReaction UsageType = "reaction"
	UsageMessage  UsageType = "message"
)

// EmojiUsage is one row of the immutable usage log. The score column holds
// the value the policy assigned at write time; later policy changes never
// rewrite history.
type EmojiUsage struct {
	bun.BaseModel `bun:"table:emoji_usage,alias:eu"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	ChannelID    int64     `bun:"channel_id,nullzero"`
	EmojiName    string    `bun:"emoji_name,notnull"`
	EmojiScore   int       `bun:"emoji_score,notnull,default:1"`
	UsageType    UsageType `bun:"usage_type,notnull"`
	MessageTS    string    `bun:"message_ts,nullzero"`
	TargetUserID int64     `bun:"target_user_id,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}
