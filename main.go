package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"
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
	customHandler := logger.NewHandler("Tracker")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting emoji tracker",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncDirectory := flag.Bool("sync-directory", false, "Whether to mirror the full user and channel roster on startup")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := slackmoji.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	if err := cfg.Slack.Validate(); err != nil {
		slog.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	customHandler.SetLevel(cfg.Log.Level)
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	policy, err := emoji.LoadPolicy(cfg.Emoji.ConfigPath)
	if err != nil {
		slog.Error("Failed to load emoji score table",
			slog.String("path", cfg.Emoji.ConfigPath),
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Emoji score table loaded",
		slog.Int("emojis", len(policy.Table())))

	client := slack.New(cfg.Slack.BotToken, slack.OptionAppLevelToken(cfg.Slack.AppToken))
	directory := services.NewSlackDirectory(client)
	tracker := services.NewTrackerService(db.BunDB(), policy, directory)
	slackService := services.NewSlackService(client, tracker, directory)

	if err := slackService.TestConnection(ctx); err != nil {
		slog.Error("Slack connection test failed", slog.Any("error", err))
		os.Exit(-1)
	}

	if *shouldSyncDirectory {
		slog.Info("Syncing workspace directory...")
		if _, err := slackService.SyncUsers(ctx); err != nil {
			slog.Error("User sync failed", slog.Any("error", err))
		}
		if _, err := slackService.SyncChannels(ctx); err != nil {
			slog.Error("Channel sync failed", slog.Any("error", err))
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := slackService.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.LogError("Socket Mode loop exited", err)
			stop()
		}
	}()

	logger.LogSystem("Tracker is running. Press CTRL-C to exit.")
	<-runCtx.Done()
	logger.LogSystem("Shutting down tracker...")
}
