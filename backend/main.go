package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/slack-go/slack"

	"github.com/slackmoji/slackmoji/backend/config"
	"github.com/slackmoji/slackmoji/backend/handlers"
	"github.com/slackmoji/slackmoji/backend/middleware"
	"github.com/slackmoji/slackmoji/slackmoji"
	"github.com/slackmoji/slackmoji/slackmoji/database"
	"github.com/slackmoji/slackmoji/slackmoji/emoji"
	"github.com/slackmoji/slackmoji/slackmoji/logger"
	"github.com/slackmoji/slackmoji/slackmoji/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "../config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	customHandler := logger.NewHandler("Tracker-API")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting stats API",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := slackmoji.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	customHandler.SetLevel(cfg.Log.Level)

	webCfg := config.NewWebAppConfig(cfg, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
	dbConfig := database.DBConfig{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Database:     cfg.DB.Database,
		PoolSize:     cfg.DB.PoolSize,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxLifetime:  cfg.DB.MaxLifetime,
	}
	db, err := database.New(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database connected successfully")

	policy, err := emoji.LoadPolicy(cfg.Emoji.ConfigPath)
	if err != nil {
		slog.Error("Failed to load emoji score table", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The API is read-only: no directory client, identities are served as
	// the listener recorded them.
	tracker := services.NewTrackerService(db.BunDB(), policy, nil)

	app := fiber.New(fiber.Config{
		AppName:      "Emoji Tracker API",
		ServerHeader: "EmojiTracker",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: webCfg.CORSOrigins(),
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(middleware.LoggingMiddleware())
	app.Use(middleware.APIRateLimit())

	var slackClient *slack.Client
	if cfg.Slack.BotToken != "" {
		slackClient = slack.New(cfg.Slack.BotToken)
	}

	webApp := &handlers.WebApp{
		Config:  webCfg,
		DB:      db,
		Tracker: tracker,
		Slack:   slackClient,
		Version: version,
		Commit:  commit,
	}

	setupRoutes(app, webApp)

	address := cfg.API.Addr()
	slog.Info("Starting API server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-c
	slog.Info("Shutting down API server...")

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	db.Close()

	slog.Info("API server shutdown complete")
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp) {
	app.Get("/health", handlers.HealthCheck(webApp))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Emoji Tracker API",
			"version": webApp.Version,
			"status":  "running",
		})
	})

	app.Get("/leaderboard", handlers.Leaderboard(webApp))
	app.Get("/users", handlers.ListUsers(webApp))
	app.Get("/users/:id/stats", handlers.UserStats(webApp))
	app.Get("/users/:id/history", handlers.UserHistory(webApp))
	app.Get("/channels", handlers.ListChannels(webApp))
	app.Get("/channels/:id/stats", handlers.ChannelStats(webApp))
	app.Get("/emojis", handlers.EmojiConfig(webApp))
	app.Get("/stats/global", handlers.GlobalStats(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return c.Status(404).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
		})
	})
}
