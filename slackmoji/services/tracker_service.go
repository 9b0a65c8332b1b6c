package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/slackmoji/slackmoji/slackmoji/database/models"
	"github.com/slackmoji/slackmoji/slackmoji/database/repositories"
	"github.com/slackmoji/slackmoji/slackmoji/emoji"
	"github.com/uptrace/bun"
)

const (
	topEmojisPerUser  = 10
	topEmojisGlobal   = 20
	topEntriesChannel = 10
)

// TrackerService is the write and read core: it turns raw emoji events into
// durable usage rows plus running counters, and answers the aggregated
// queries the HTTP surface serves.
type TrackerService struct {
	db        *bun.DB
	policy    *emoji.Policy
	directory Directory

	users    repositories.UserRepository
	channels repositories.ChannelRepository
	usages   repositories.UsageRepository
	stats    repositories.StatsRepository
}

// NewTrackerService wires the service against db. directory may be nil, in
// which case identities are recorded with their platform IDs only.
func NewTrackerService(db *bun.DB, policy *emoji.Policy, directory Directory) *TrackerService {
	return &TrackerService{
		db:        db,
		policy:    policy,
		directory: directory,
		users:     repositories.NewUserRepository(db),
		channels:  repositories.NewChannelRepository(db),
		usages:    repositories.NewUsageRepository(db),
		stats:     repositories.NewStatsRepository(db),
	}
}

// TrackRequest is one observed emoji occurrence. ChannelID, MessageTS and
// TargetUserID are optional; TargetUserID only carries receive credit for
// reactions.
type TrackRequest struct {
	UserID       string
	Emoji        string
	Type         models.UsageType
	ChannelID    string
	MessageTS    string
	TargetUserID string
}

// Track records one emoji occurrence. Untracked emojis return (nil, nil)
// without touching the database. All writes for a tracked occurrence commit
// in a single transaction, so counters never drift from the usage log.
func (s *TrackerService) Track(ctx context.Context, req TrackRequest) (*models.EmojiUsage, error) {
	start := time.Now()

	name := s.policy.Normalize(req.Emoji)
	score := s.policy.ScoreOf(name)
	if score <= 0 {
		slog.Debug("Skipping untracked emoji",
			slog.String("emoji", name),
			slog.String("user", req.UserID))
		return nil, nil
	}

	// Profile lookups hit the platform API; resolve them before the
	// transaction opens so no round trip runs inside it.
	actorFields := s.enrichUserFields(ctx, req.UserID)
	var channelFields repositories.ChannelFields
	if req.ChannelID != "" {
		channelFields = s.enrichChannelFields(ctx, req.ChannelID)
	}
	var targetFields repositories.UserFields
	if req.TargetUserID != "" {
		targetFields = s.enrichUserFields(ctx, req.TargetUserID)
	}

	var usage *models.EmojiUsage
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		users := s.users.WithTx(tx)
		channels := s.channels.WithTx(tx)
		usages := s.usages.WithTx(tx)
		stats := s.stats.WithTx(tx)

		actor, err := users.Upsert(ctx, req.UserID, actorFields)
		if err != nil {
			return err
		}

		var channelID int64
		if req.ChannelID != "" {
			channel, err := channels.Upsert(ctx, req.ChannelID, channelFields)
			if err != nil {
				return err
			}
			channelID = channel.ID
		}

		var target *models.User
		if req.TargetUserID != "" && req.Type == models.UsageReaction {
			target, err = users.Upsert(ctx, req.TargetUserID, targetFields)
			if err != nil {
				return err
			}
		}

		usage = &models.EmojiUsage{
			UserID:     actor.ID,
			ChannelID:  channelID,
			EmojiName:  name,
			EmojiScore: score,
			UsageType:  req.Type,
			MessageTS:  req.MessageTS,
			CreatedAt:  time.Now(),
		}
		if target != nil {
			usage.TargetUserID = target.ID
		}
		if err := usages.Insert(ctx, usage); err != nil {
			return err
		}

		if err := stats.IncrementGiven(ctx, actor.ID, name, score); err != nil {
			return err
		}
		if target != nil && target.ID != actor.ID {
			if err := stats.IncrementReceived(ctx, target.ID, name, score); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record emoji usage: %w", err)
	}

	slog.Debug("Recorded emoji usage",
		slog.String("emoji", name),
		slog.String("user", req.UserID),
		slog.String("type", string(req.Type)),
		slog.Duration("took", time.Since(start)))
	return usage, nil
}

// EnsureUsers creates identity rows for the given platform IDs if absent.
// Failures on individual IDs are logged and skipped; mention bookkeeping
// never blocks event handling.
func (s *TrackerService) EnsureUsers(ctx context.Context, slackIDs []string) {
	for _, id := range slackIDs {
		if _, err := s.users.GetBySlackID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Failed to check mentioned user",
				slog.String("user", id),
				slog.String("error", err.Error()))
			continue
		}

		if _, err := s.users.Upsert(ctx, id, s.enrichUserFields(ctx, id)); err != nil {
			slog.Warn("Failed to create mentioned user",
				slog.String("user", id),
				slog.String("error", err.Error()))
		}
	}
}

// UpsertUser applies a profile update from a directory sync or member event.
func (s *TrackerService) UpsertUser(ctx context.Context, slackID string, fields repositories.UserFields) (*models.User, error) {
	return s.users.Upsert(ctx, slackID, fields)
}

// UpsertChannel applies a channel update from a sync or channel event.
func (s *TrackerService) UpsertChannel(ctx context.Context, slackID string, fields repositories.ChannelFields) (*models.Channel, error) {
	return s.channels.Upsert(ctx, slackID, fields)
}

// enrichUserFields fills profile fields from the directory. Lookup failures
// degrade to an ID-only upsert.
func (s *TrackerService) enrichUserFields(ctx context.Context, slackID string) repositories.UserFields {
	if s.directory == nil {
		return repositories.UserFields{}
	}

	profile, err := s.directory.LookupUser(ctx, slackID)
	if err != nil {
		slog.Warn("Profile lookup failed, recording ID only",
			slog.String("user", slackID),
			slog.String("error", err.Error()))
		return repositories.UserFields{}
	}

	return userFieldsFromProfile(profile)
}

func (s *TrackerService) enrichChannelFields(ctx context.Context, slackID string) repositories.ChannelFields {
	if s.directory == nil {
		return repositories.ChannelFields{}
	}

	info, err := s.directory.LookupChannel(ctx, slackID)
	if err != nil {
		slog.Warn("Channel lookup failed, recording ID only",
			slog.String("channel", slackID),
			slog.String("error", err.Error()))
		return repositories.ChannelFields{}
	}

	return repositories.ChannelFields{
		Name:       &info.Name,
		IsPrivate:  &info.IsPrivate,
		IsArchived: &info.IsArchived,
	}
}

func (s *TrackerService) GetUserStats(ctx context.Context, slackID string) (*UserStats, error) {
	user, err := s.users.GetBySlackID(ctx, slackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	totals, err := s.stats.UserTotals(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	given, err := s.stats.TopGiven(ctx, user.ID, topEmojisPerUser)
	if err != nil {
		return nil, err
	}
	received, err := s.stats.TopReceived(ctx, user.ID, topEmojisPerUser)
	if err != nil {
		return nil, err
	}

	out := &UserStats{
		User: userSummary(user),
		Totals: Totals{
			GivenCount:    totals.GivenCount,
			GivenScore:    totals.GivenScore,
			ReceivedCount: totals.ReceivedCount,
			ReceivedScore: totals.ReceivedScore,
		},
		TopGiven:    make([]EmojiSummary, 0, len(given)),
		TopReceived: make([]EmojiSummary, 0, len(received)),
	}
	for _, stat := range given {
		out.TopGiven = append(out.TopGiven, EmojiSummary{
			Emoji: stat.EmojiName,
			Count: stat.GivenCount,
			Score: stat.GivenScore,
		})
	}
	for _, stat := range received {
		out.TopReceived = append(out.TopReceived, EmojiSummary{
			Emoji: stat.EmojiName,
			Count: stat.ReceivedCount,
			Score: stat.ReceivedScore,
		})
	}
	return out, nil
}

func (s *TrackerService) GetLeaderboard(ctx context.Context, sort repositories.LeaderboardSort, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.stats.Leaderboard(ctx, sort, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank: row.Rank,
			User: UserSummary{
				SlackID:     row.SlackID,
				DisplayName: row.DisplayName,
				RealName:    row.RealName,
			},
			Stats: Totals{
				GivenCount:    row.GivenCount,
				GivenScore:    row.GivenScore,
				ReceivedCount: row.ReceivedCount,
				ReceivedScore: row.ReceivedScore,
			},
		})
	}
	return entries, nil
}

func (s *TrackerService) GetUserHistory(ctx context.Context, slackID string, limit, offset int) (*UserHistory, error) {
	user, err := s.users.GetBySlackID(ctx, slackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	total, err := s.usages.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	usages, err := s.usages.HistoryByUser(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	history := make([]UsageEntry, 0, len(usages))
	for _, usage := range usages {
		history = append(history, UsageEntry{
			Emoji:     usage.EmojiName,
			Score:     usage.EmojiScore,
			Type:      string(usage.UsageType),
			Timestamp: usage.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return &UserHistory{
		User:    userSummary(user),
		History: history,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(history) < total,
		},
	}, nil
}

func (s *TrackerService) GetChannelStats(ctx context.Context, slackID string) (*ChannelStats, error) {
	channel, err := s.channels.GetBySlackID(ctx, slackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	totals, err := s.usages.ChannelTotals(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	topEmojis, err := s.usages.TopEmojisInChannel(ctx, channel.ID, topEntriesChannel)
	if err != nil {
		return nil, err
	}
	topUsers, err := s.usages.TopUsersInChannel(ctx, channel.ID, topEntriesChannel)
	if err != nil {
		return nil, err
	}

	out := &ChannelStats{
		Channel: ChannelSummary{
			SlackID:   channel.SlackID,
			Name:      channel.Name,
			IsPrivate: channel.IsPrivate,
		},
		Totals: ChannelTotals{
			TotalCount: totals.TotalCount,
			TotalScore: totals.TotalScore,
		},
		TopEmojis: emojiSummaries(topEmojis),
		TopUsers:  make([]ChannelUserSummary, 0, len(topUsers)),
	}
	for _, row := range topUsers {
		out.TopUsers = append(out.TopUsers, ChannelUserSummary{
			User: UserSummary{
				SlackID:     row.SlackID,
				DisplayName: row.DisplayName,
			},
			Count: row.Count,
			Score: row.Score,
		})
	}
	return out, nil
}

func (s *TrackerService) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	totals, err := s.usages.GlobalTotals(ctx)
	if err != nil {
		return nil, err
	}
	topEmojis, err := s.usages.TopEmojis(ctx, topEmojisGlobal)
	if err != nil {
		return nil, err
	}
	activeUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeChannels, err := s.channels.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &GlobalStats{
		Totals: GlobalTotals{
			TotalUsage:     totals.TotalCount,
			TotalScore:     totals.TotalScore,
			UniqueEmojis:   totals.UniqueEmojis,
			ActiveUsers:    activeUsers,
			ActiveChannels: activeChannels,
		},
		TopEmojis: emojiSummaries(topEmojis),
	}, nil
}

func (s *TrackerService) ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, user := range users {
		out = append(out, userSummary(user))
	}
	return out, nil
}

func (s *TrackerService) ListChannels(ctx context.Context, limit, offset int) ([]ChannelSummary, error) {
	channels, err := s.channels.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelSummary, 0, len(channels))
	for _, channel := range channels {
		out = append(out, ChannelSummary{
			SlackID:   channel.SlackID,
			Name:      channel.Name,
			IsPrivate: channel.IsPrivate,
		})
	}
	return out, nil
}

// Policy exposes the emoji scoring table for the HTTP surface.
func (s *TrackerService) Policy() *emoji.Policy {
	return s.policy
}

func userSummary(user *models.User) UserSummary {
	return UserSummary{
		SlackID:     user.SlackID,
		DisplayName: user.DisplayName,
		RealName:    user.RealName,
		Email:       user.Email,
	}
}

func emojiSummaries(rows []repositories.EmojiCount) []EmojiSummary {
	out := make([]EmojiSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, EmojiSummary{
			Emoji: row.Emoji,
			Count: row.Count,
			Score: row.Score,
		})
	}
	return out
}
