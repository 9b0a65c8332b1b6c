package slackmoji

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log   LogConfig   `toml:"log"`
	Slack SlackConfig `toml:"slack"`
	DB    DBConfig    `toml:"db"`
	API   APIConfig   `toml:"api"`
	Emoji EmojiConfig `toml:"emoji"`
}

type SlackConfig struct {
	BotToken string `toml:"bot_token"`
	AppToken string `toml:"app_token"`
}

// Validate checks that the tokens the Socket Mode listener needs are set.
// The backend can run without them (it only loses the Slack health probe).
func (c SlackConfig) Validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "slack.bot_token")
	}
	if c.AppToken == "" {
		missing = append(missing, "slack.app_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config values: %v", missing)
	}
	return nil
}

type LogConfig struct {
	// Minimum level, e.g. "debug" or "warn". Defaults to info.
	Level slog.Level `toml:"level"`
}

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type APIConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	CORSOrigins string `toml:"cors_origins"`
}

func (c APIConfig) Addr() string {
	host := c.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.Port
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

type EmojiConfig struct {
	// Path to the emoji score table. Empty falls back to the built-in table.
	ConfigPath string `toml:"config_path"`
}
