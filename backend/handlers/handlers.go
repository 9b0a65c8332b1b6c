package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/slack-go/slack"

	"github.com/slackmoji/slackmoji/backend/config"
	"github.com/slackmoji/slackmoji/backend/models"
	"github.com/slackmoji/slackmoji/backend/utils"
	"github.com/slackmoji/slackmoji/slackmoji/database"
	"github.com/slackmoji/slackmoji/slackmoji/database/repositories"
	"github.com/slackmoji/slackmoji/slackmoji/services"
)

const (
	defaultLeaderboardLimit = 10
	defaultHistoryLimit     = 20
	defaultListLimit        = 100
	maxLimit                = 200
)

// WebApp holds the shared state for all HTTP handlers. Slack is optional:
// without a bot token the health check just skips the platform probe.
type WebApp struct {
	Config  *config.WebAppConfig
	DB      *database.DB
	Tracker *services.TrackerService
	Slack   *slack.Client
	Version string
	Commit  string
}

// HealthCheck reports the status of the service and its dependencies.
func HealthCheck(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := models.NewHealthCheck(app.Version)
		health.Commit = app.Commit

		dbStart := time.Now()
		if err := app.DB.Ping(c.Context()); err != nil {
			health.AddComponent("database", "unhealthy", err.Error(), nil)
		} else {
			health.AddComponent("database", "healthy", "", map[string]interface{}{
				"ping_ms": time.Since(dbStart).Milliseconds(),
			})
		}

		if app.Slack != nil {
			if _, err := app.Slack.AuthTestContext(c.Context()); err != nil {
				// The stats API still serves reads without Slack.
				health.AddComponent("slack", "degraded", err.Error(), nil)
			} else {
				health.AddComponent("slack", "healthy", "", nil)
			}
		}

		policy := app.Tracker.Policy()
		health.AddComponent("emoji_config", "healthy", "", map[string]interface{}{
			"configured_emojis": len(policy.Table()),
			"track_all":         policy.Settings().TrackAllEmojis,
		})

		status := fiber.StatusOK
		if health.Status == "unhealthy" {
			status = fiber.StatusServiceUnavailable
		}
		return utils.SendJSON(c, status, health)
	}
}

// Leaderboard returns ranked users. Query params: limit, sort_by.
func Leaderboard(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := clampLimit(c.QueryInt("limit", defaultLeaderboardLimit))
		sort := repositories.ParseLeaderboardSort(c.Query("sort_by"))

		entries, err := app.Tracker.GetLeaderboard(c.Context(), sort, limit)
		if err != nil {
			slog.Error("Leaderboard query failed", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load leaderboard")
		}

		return utils.SendSuccess(c, fiber.Map{
			"leaderboard": entries,
			"sort_by":     sort.String(),
			"limit":       limit,
		}, "")
	}
}

// UserStats returns aggregate counters and top emojis for one user.
func UserStats(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slackID := c.Params("id")

		stats, err := app.Tracker.GetUserStats(c.Context(), slackID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return utils.SendNotFound(c, "User not found")
			}
			slog.Error("User stats query failed",
				slog.String("user", slackID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load user stats")
		}

		return utils.SendSuccess(c, stats, "")
	}
}

// UserHistory returns the paginated usage log for one user. Query params:
// limit, offset.
func UserHistory(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slackID := c.Params("id")
		limit := clampLimit(c.QueryInt("limit", defaultHistoryLimit))
		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		history, err := app.Tracker.GetUserHistory(c.Context(), slackID, limit, offset)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return utils.SendNotFound(c, "User not found")
			}
			slog.Error("User history query failed",
				slog.String("user", slackID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load user history")
		}

		return utils.SendSuccess(c, history, "")
	}
}

// ChannelStats returns aggregate usage for one channel.
func ChannelStats(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slackID := c.Params("id")

		stats, err := app.Tracker.GetChannelStats(c.Context(), slackID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return utils.SendNotFound(c, "Channel not found")
			}
			slog.Error("Channel stats query failed",
				slog.String("channel", slackID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load channel stats")
		}

		return utils.SendSuccess(c, stats, "")
	}
}

// EmojiConfig returns the active score table and its settings.
func EmojiConfig(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		policy := app.Tracker.Policy()
		return utils.SendSuccess(c, fiber.Map{
			"emojis":   policy.Table(),
			"settings": policy.Settings(),
		}, "")
	}
}

// ListUsers returns known active users. Query params: limit, offset.
func ListUsers(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := clampLimit(c.QueryInt("limit", defaultListLimit))
		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		users, err := app.Tracker.ListUsers(c.Context(), limit, offset)
		if err != nil {
			slog.Error("User list query failed", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load users")
		}

		return utils.SendSuccess(c, fiber.Map{
			"users":  users,
			"limit":  limit,
			"offset": offset,
		}, "")
	}
}

// ListChannels returns known unarchived channels. Query params: limit, offset.
func ListChannels(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := clampLimit(c.QueryInt("limit", defaultListLimit))
		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		channels, err := app.Tracker.ListChannels(c.Context(), limit, offset)
		if err != nil {
			slog.Error("Channel list query failed", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load channels")
		}

		return utils.SendSuccess(c, fiber.Map{
			"channels": channels,
			"limit":    limit,
			"offset":   offset,
		}, "")
	}
}

// GlobalStats returns workspace-wide usage totals.
func GlobalStats(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := app.Tracker.GetGlobalStats(c.Context())
		if err != nil {
			slog.Error("Global stats query failed", slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load global stats")
		}

		return utils.SendSuccess(c, stats, "")
	}
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
