package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"github.com/slack-go/slack"
)

const (
	profileCacheSize = 2048
	channelCacheSize = 512
	rosterTTL        = 10 * time.Minute
	conversationPage = 200
)

// UserProfile is a workspace member as the chat platform reports it.
type UserProfile struct {
	SlackID     string
	Email       string
	DisplayName string
	RealName    string
	IsBot       bool
	Deleted     bool
}

// ChannelInfo is a conversation as the chat platform reports it.
type ChannelInfo struct {
	SlackID    string
	Name       string
	IsPrivate  bool
	IsArchived bool
}

// Directory answers identity questions about the workspace. Implementations
// are expected to cache aggressively; callers treat lookups as cheap.
type Directory interface {
	LookupUser(ctx context.Context, slackID string) (*UserProfile, error)
	LookupChannel(ctx context.Context, slackID string) (*ChannelInfo, error)
	ResolveDisplayName(ctx context.Context, name string) (string, bool)
	ListUsers(ctx context.Context) ([]UserProfile, error)
	ListChannels(ctx context.Context) ([]ChannelInfo, error)
}

type slackDirectory struct {
	client *slack.Client

	userCache    *lru.Cache
	channelCache *lru.Cache

	rosterMu   sync.RWMutex
	roster     []rosterEntry
	rosterTime time.Time
}

type rosterEntry struct {
	slackID string
	names   string
}

func NewSlackDirectory(client *slack.Client) Directory {
	userCache, _ := lru.New(profileCacheSize)
	channelCache, _ := lru.New(channelCacheSize)
	return &slackDirectory{
		client:       client,
		userCache:    userCache,
		channelCache: channelCache,
	}
}

func (d *slackDirectory) LookupUser(ctx context.Context, slackID string) (*UserProfile, error) {
	if cached, ok := d.userCache.Get(slackID); ok {
		return cached.(*UserProfile), nil
	}

	user, err := d.client.GetUserInfoContext(ctx, slackID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", slackID, err)
	}

	profile := profileFromUser(user)
	d.userCache.Add(slackID, profile)
	return profile, nil
}

func (d *slackDirectory) LookupChannel(ctx context.Context, slackID string) (*ChannelInfo, error) {
	if cached, ok := d.channelCache.Get(slackID); ok {
		return cached.(*ChannelInfo), nil
	}

	channel, err := d.client.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: slackID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", slackID, err)
	}

	info := &ChannelInfo{
		SlackID:    channel.ID,
		Name:       channel.Name,
		IsPrivate:  channel.IsPrivate,
		IsArchived: channel.IsArchived,
	}
	d.channelCache.Add(slackID, info)
	return info, nil
}

func (d *slackDirectory) ListUsers(ctx context.Context) ([]UserProfile, error) {
	users, err := d.client.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	profiles := make([]UserProfile, 0, len(users))
	for i := range users {
		profile := profileFromUser(&users[i])
		d.userCache.Add(profile.SlackID, profile)
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

func (d *slackDirectory) ListChannels(ctx context.Context) ([]ChannelInfo, error) {
	var channels []ChannelInfo
	cursor := ""
	for {
		page, next, err := d.client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:  []string{"public_channel", "private_channel"},
			Limit:  conversationPage,
			Cursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list channels: %w", err)
		}

		for _, ch := range page {
			info := ChannelInfo{
				SlackID:    ch.ID,
				Name:       ch.Name,
				IsPrivate:  ch.IsPrivate,
				IsArchived: ch.IsArchived,
			}
			d.channelCache.Add(info.SlackID, &ChannelInfo{
				SlackID:    info.SlackID,
				Name:       info.Name,
				IsPrivate:  info.IsPrivate,
				IsArchived: info.IsArchived,
			})
			channels = append(channels, info)
		}

		if next == "" {
			return channels, nil
		}
		cursor = next
	}
}

// ResolveDisplayName maps a bare typed name ("@jane") to a member ID. Exact
// matches on username, display name or real name win; otherwise the closest
// fuzzy match over the roster is taken.
func (d *slackDirectory) ResolveDisplayName(ctx context.Context, name string) (string, bool) {
	roster, err := d.rosterSnapshot(ctx)
	if err != nil {
		slog.Warn("Display name resolution unavailable",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return "", false
	}

	needle := strings.ToLower(name)
	for _, entry := range roster {
		for _, candidate := range strings.Split(entry.names, "\x00") {
			if candidate == needle {
				return entry.slackID, true
			}
		}
	}

	matches := fuzzy.FindFrom(needle, rosterSource(roster))
	if len(matches) == 0 {
		return "", false
	}
	return roster[matches[0].Index].slackID, true
}

func (d *slackDirectory) rosterSnapshot(ctx context.Context) ([]rosterEntry, error) {
	d.rosterMu.RLock()
	if d.roster != nil && time.Since(d.rosterTime) < rosterTTL {
		roster := d.roster
		d.rosterMu.RUnlock()
		return roster, nil
	}
	d.rosterMu.RUnlock()

	users, err := d.client.GetUsersContext(ctx)
	if err != nil {
		return nil, err
	}

	roster := make([]rosterEntry, 0, len(users))
	for _, u := range users {
		if u.Deleted || u.IsBot {
			continue
		}
		names := []string{strings.ToLower(u.Name)}
		if u.Profile.DisplayName != "" {
			names = append(names, strings.ToLower(u.Profile.DisplayName))
		}
		if u.Profile.RealName != "" {
			names = append(names, strings.ToLower(u.Profile.RealName))
		}
		roster = append(roster, rosterEntry{
			slackID: u.ID,
			names:   strings.Join(names, "\x00"),
		})
	}

	d.rosterMu.Lock()
	d.roster = roster
	d.rosterTime = time.Now()
	d.rosterMu.Unlock()
	return roster, nil
}

type rosterSource []rosterEntry

func (s rosterSource) String(i int) string {
	return strings.ReplaceAll(s[i].names, "\x00", " ")
}

func (s rosterSource) Len() int { return len(s) }

func profileFromUser(user *slack.User) *UserProfile {
	displayName := user.Profile.DisplayName
	if displayName == "" {
		displayName = user.Name
	}
	return &UserProfile{
		SlackID:     user.ID,
		Email:       user.Profile.Email,
		DisplayName: displayName,
		RealName:    user.Profile.RealName,
		IsBot:       user.IsBot,
		Deleted:     user.Deleted,
	}
}
