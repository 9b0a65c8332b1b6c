package services

import "errors"

// ErrNotFound is returned by read paths when the referenced identity does not
// exist. It is a normal, typed outcome, not a failure of unrelated work.
var ErrNotFound = errors.New("record not found")

type UserSummary struct {
	SlackID     string `json:"slack_id"`
	DisplayName string `json:"display_name,omitempty"`
	RealName    string `json:"real_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

type ChannelSummary struct {
	SlackID   string `json:"slack_id"`
	Name      string `json:"name,omitempty"`
	IsPrivate bool   `json:"is_private"`
}

type Totals struct {
	GivenCount    int64 `json:"given_count"`
	GivenScore    int64 `json:"given_score"`
	ReceivedCount int64 `json:"received_count"`
	ReceivedScore int64 `json:"received_score"`
}

type EmojiSummary struct {
	Emoji string `json:"emoji"`
	Count int64  `json:"count"`
	Score int64  `json:"score"`
}

type UserStats struct {
	User        UserSummary    `json:"user"`
	Totals      Totals         `json:"totals"`
	TopGiven    []EmojiSummary `json:"top_given"`
	TopReceived []EmojiSummary `json:"top_received"`
}

type LeaderboardEntry struct {
	Rank  int         `json:"rank"`
	User  UserSummary `json:"user"`
	Stats Totals      `json:"stats"`
}

type UsageEntry struct {
	Emoji     string `json:"emoji"`
	Score     int    `json:"score"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type UserHistory struct {
	User       UserSummary  `json:"user"`
	History    []UsageEntry `json:"history"`
	Pagination Pagination   `json:"pagination"`
}

type ChannelUserSummary struct {
	User  UserSummary `json:"user"`
	Count int64       `json:"count"`
	Score int64       `json:"score"`
}

type ChannelStats struct {
	Channel   ChannelSummary       `json:"channel"`
	Totals    ChannelTotals        `json:"totals"`
	TopEmojis []EmojiSummary       `json:"top_emojis"`
	TopUsers  []ChannelUserSummary `json:"top_users"`
}

type ChannelTotals struct {
	TotalCount int64 `json:"total_count"`
	TotalScore int64 `json:"total_score"`
}

type GlobalTotals struct {
	TotalUsage     int64 `json:"total_usage"`
	TotalScore     int64 `json:"total_score"`
	UniqueEmojis   int64 `json:"unique_emojis"`
	ActiveUsers    int   `json:"active_users"`
	ActiveChannels int   `json:"active_channels"`
}

type GlobalStats struct {
	Totals    GlobalTotals   `json:"totals"`
	TopEmojis []EmojiSummary `json:"top_emojis"`
}
