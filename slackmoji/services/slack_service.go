package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/slackmoji/slackmoji/slackmoji/database/models"
	"github.com/slackmoji/slackmoji/slackmoji/database/repositories"
	"github.com/slackmoji/slackmoji/slackmoji/emoji"
	"github.com/slackmoji/slackmoji/slackmoji/logger"
)

// SlackService owns the Socket Mode connection and translates platform
// events into tracker calls.
type SlackService struct {
	client    *slack.Client
	socket    *socketmode.Client
	tracker   *TrackerService
	directory Directory
}

func NewSlackService(client *slack.Client, tracker *TrackerService, directory Directory) *SlackService {
	return &SlackService{
		client:    client,
		socket:    socketmode.New(client),
		tracker:   tracker,
		directory: directory,
	}
}

// Client returns the underlying API client, for callers that need direct
// platform access (directory construction, health probes).
func (s *SlackService) Client() *slack.Client {
	return s.client
}

// TestConnection verifies the bot token against the platform.
func (s *SlackService) TestConnection(ctx context.Context) error {
	resp, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("auth test failed: %w", err)
	}
	slog.Info("Connected to workspace",
		slog.String("team", resp.Team),
		slog.String("bot_user", resp.UserID))
	return nil
}

// Run connects in Socket Mode and processes events until ctx is cancelled.
func (s *SlackService) Run(ctx context.Context) error {
	go s.handleEvents(ctx)
	return s.socket.RunContext(ctx)
}

func (s *SlackService) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.socket.Events:
			if !ok {
				return
			}
			s.dispatch(ctx, evt)
		}
	}
}

func (s *SlackService) dispatch(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		slog.Info("Connecting to Socket Mode")
	case socketmode.EventTypeConnected:
		slog.Info("Socket Mode connected")
	case socketmode.EventTypeConnectionError:
		slog.Warn("Socket Mode connection error, retrying")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			s.socket.Ack(*evt.Request)
		}
		s.handleEventsAPI(ctx, apiEvent, evt.Request)
	}
}

func (s *SlackService) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent, req *socketmode.Request) {
	if event.Type != slackevents.CallbackEvent {
		return
	}

	start := time.Now()
	var err error

	switch inner := event.InnerEvent.Data.(type) {
	case *slackevents.ReactionAddedEvent:
		err = s.handleReactionAdded(ctx, inner)
	case *slackevents.ReactionRemovedEvent:
		// Removals are observed but never unwound: the usage log is
		// append-only and counters stay monotonic.
		slog.Debug("Reaction removed, not unwinding",
			slog.String("emoji", inner.Reaction),
			slog.String("user", inner.User))
	case *slackevents.MessageEvent:
		err = s.handleMessage(ctx, inner, req)
	case *slackevents.TeamJoinEvent:
		if inner.User != nil {
			_, err = s.tracker.UpsertUser(ctx, inner.User.ID, userFieldsFromProfile(profileFromUser(inner.User)))
		}
	case *slackevents.UserProfileChangedEvent:
		if inner.User != nil {
			_, err = s.tracker.UpsertUser(ctx, inner.User.ID, userFieldsFromProfile(profileFromUser(inner.User)))
		}
	case *slackevents.MemberJoinedChannelEvent:
		err = s.handleMemberJoined(ctx, inner)
	case *slackevents.ChannelCreatedEvent:
		_, err = s.tracker.UpsertChannel(ctx, inner.Channel.ID, repositories.ChannelFields{
			Name: &inner.Channel.Name,
		})
	case *slackevents.ChannelRenameEvent:
		_, err = s.tracker.UpsertChannel(ctx, inner.Channel.ID, repositories.ChannelFields{
			Name: &inner.Channel.Name,
		})
	case *slackevents.ChannelArchiveEvent:
		archived := true
		_, err = s.tracker.UpsertChannel(ctx, inner.Channel, repositories.ChannelFields{
			IsArchived: &archived,
		})
	case *slackevents.ChannelUnarchiveEvent:
		archived := false
		_, err = s.tracker.UpsertChannel(ctx, inner.Channel, repositories.ChannelFields{
			IsArchived: &archived,
		})
	default:
		return
	}

	logger.LogEvent(event.InnerEvent.Type, time.Since(start), err)
}

func (s *SlackService) handleReactionAdded(ctx context.Context, ev *slackevents.ReactionAddedEvent) error {
	if ev.User == "" || ev.Reaction == "" {
		return nil
	}

	target := ev.ItemUser
	if target == "" && ev.Item.Channel != "" && ev.Item.Timestamp != "" {
		// item_user is absent for some item types; best-effort fetch of the
		// message author so receive credit still lands.
		target = s.fetchMessageAuthor(ctx, ev.Item.Channel, ev.Item.Timestamp)
	}

	_, err := s.tracker.Track(ctx, TrackRequest{
		UserID:       ev.User,
		Emoji:        ev.Reaction,
		Type:         models.UsageReaction,
		ChannelID:    ev.Item.Channel,
		MessageTS:    ev.Item.Timestamp,
		TargetUserID: target,
	})
	return err
}

func (s *SlackService) handleMessage(ctx context.Context, ev *slackevents.MessageEvent, req *socketmode.Request) error {
	if ev.SubType != "" || ev.BotID != "" || ev.User == "" || ev.Text == "" {
		return nil
	}

	names := emoji.ExtractEmojiNames(ev.Text)
	mentions := emoji.ExtractMentions(ctx, ev.Text, messageBlocks(req), s.directory)
	if len(mentions) > 0 {
		s.tracker.EnsureUsers(ctx, mentions)
	}

	for _, name := range names {
		if _, err := s.tracker.Track(ctx, TrackRequest{
			UserID:    ev.User,
			Emoji:     name,
			Type:      models.UsageMessage,
			ChannelID: ev.Channel,
			MessageTS: ev.TimeStamp,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *SlackService) handleMemberJoined(ctx context.Context, ev *slackevents.MemberJoinedChannelEvent) error {
	fields := repositories.UserFields{}
	if s.directory != nil {
		if profile, err := s.directory.LookupUser(ctx, ev.User); err == nil {
			fields = userFieldsFromProfile(profile)
		}
	}
	if _, err := s.tracker.UpsertUser(ctx, ev.User, fields); err != nil {
		return err
	}
	_, err := s.tracker.UpsertChannel(ctx, ev.Channel, repositories.ChannelFields{})
	return err
}

func userFieldsFromProfile(profile *UserProfile) repositories.UserFields {
	active := !profile.Deleted
	return repositories.UserFields{
		Email:       &profile.Email,
		DisplayName: &profile.DisplayName,
		RealName:    &profile.RealName,
		IsBot:       &profile.IsBot,
		IsActive:    &active,
	}
}

// fetchMessageAuthor resolves the author of the reacted message. Returns ""
// when the lookup fails; the reaction is then recorded give-side only.
func (s *SlackService) fetchMessageAuthor(ctx context.Context, channelID, timestamp string) string {
	resp, err := s.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Latest:    timestamp,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		slog.Debug("Failed to resolve message author",
			slog.String("channel", channelID),
			slog.String("error", err.Error()))
		return ""
	}
	if len(resp.Messages) == 0 {
		return ""
	}
	return resp.Messages[0].User
}

// messageBlocks pulls rich text blocks out of the raw event payload. The
// typed message event drops them, so decode the envelope again.
func messageBlocks(req *socketmode.Request) *slack.Blocks {
	if req == nil || len(req.Payload) == 0 {
		return nil
	}

	var envelope struct {
		Event struct {
			Blocks slack.Blocks `json:"blocks"`
		} `json:"event"`
	}
	if err := json.Unmarshal(req.Payload, &envelope); err != nil {
		return nil
	}
	return &envelope.Event.Blocks
}

// SyncUsers mirrors the full member roster into the identity store.
func (s *SlackService) SyncUsers(ctx context.Context) (int, error) {
	profiles, err := s.directory.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for i := range profiles {
		profile := profiles[i]
		_, err := s.tracker.UpsertUser(ctx, profile.SlackID, userFieldsFromProfile(&profile))
		if err != nil {
			slog.Warn("Failed to sync user",
				slog.String("user", profile.SlackID),
				slog.String("error", err.Error()))
			continue
		}
		synced++
	}
	slog.Info("User sync complete", slog.Int("synced", synced), slog.Int("total", len(profiles)))
	return synced, nil
}

// SyncChannels mirrors all visible conversations into the channel store.
func (s *SlackService) SyncChannels(ctx context.Context) (int, error) {
	channels, err := s.directory.ListChannels(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for i := range channels {
		ch := channels[i]
		_, err := s.tracker.UpsertChannel(ctx, ch.SlackID, repositories.ChannelFields{
			Name:       &ch.Name,
			IsPrivate:  &ch.IsPrivate,
			IsArchived: &ch.IsArchived,
		})
		if err != nil {
			slog.Warn("Failed to sync channel",
				slog.String("channel", ch.SlackID),
				slog.String("error", err.Error()))
			continue
		}
		synced++
	}
	slog.Info("Channel sync complete", slog.Int("synced", synced), slog.Int("total", len(channels)))
	return synced, nil
}
