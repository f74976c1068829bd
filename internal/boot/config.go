package boot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env      string `env:"ENV,default=dev"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
	DataDir  string `env:"DATA_DIR,default=./data"`

	CheckpointFile string        `env:"CHECKPOINT_FILE,default=./last-toot.json"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT,default=30s"`
	PushgatewayURL string        `env:"PUSHGATEWAY_URL"`

	Mastodon struct {
		URL    string `env:"MASTODON_URL,required"`
		Token  string `env:"MASTODON_TOKEN,required"`
		UserID string `env:"MASTODON_USER_ID,required"`
	}
	Bluesky struct {
		URL           string `env:"BSKY_URL,default=https://bsky.social"`
		WebURL        string `env:"BSKY_WEB_URL,default=https://bsky.app"`
		Identifier    string `env:"BSKY_ID,required"`
		Password      string `env:"BSKY_PASSWORD,required"`
		MaxPostLength int    `env:"BSKY_MAX_POST_LENGTH,default=285"`
	}
}

// Load reads an optional .env file from the working directory and then
// the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(ctx, config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if config.Bluesky.MaxPostLength <= 0 {
		return nil, fmt.Errorf("BSKY_MAX_POST_LENGTH must be positive, got %d", config.Bluesky.MaxPostLength)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}

func (c *Config) Level() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
