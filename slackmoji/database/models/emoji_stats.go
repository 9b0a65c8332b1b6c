package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EmojiStat holds the running totals for one (user, emoji) pair. The row is
// the incremental fold over all EmojiUsage rows for that pair; the sums are
// authoritative, not score x count (scores can change between occurrences).
type EmojiStat struct {
	bun.BaseModel `bun:"table:emoji_stats,alias:es"`

	ID        int64  `bun:"id,pk,autoincrement"`
	UserID    int64  `bun:"user_id,notnull,unique:emoji_stats_user_emoji"`
	EmojiName string `bun:"emoji_name,notnull,unique:emoji_stats_user_emoji"`

	GivenCount    int64 `bun:"given_count,notnull,default:0"`
	GivenScore    int64 `bun:"given_score,notnull,default:0"`
	ReceivedCount int64 `bun:"received_count,notnull,default:0"`
	ReceivedScore int64 `bun:"received_score,notnull,default:0"`

	FirstUsed time.Time `bun:"first_used,nullzero"`
	LastUsed  time.Time `bun:"last_used,nullzero"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
