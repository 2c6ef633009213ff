package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
	// Self is the system's own operating identity; messages it authors are
	// never matched or delivered.
	Self struct {
		AuthorID   int64  `json:"author_id"`
		AuthorName string `json:"author_name"`
	} `json:"self"`
	Reposter struct {
		PollIntervalSeconds int   `json:"poll_interval_seconds"`
		FetchLimit          int   `json:"fetch_limit"`
		Backfill            bool  `json:"backfill"`
		AutoSubscribeChatID int64 `json:"auto_subscribe_chat_id"`
	} `json:"reposter"`
	// CacheRefreshSchedule is a cron expression re-running the trigger
	// cache refresh as a safety net; empty disables it.
	CacheRefreshSchedule string `json:"cache_refresh_schedule"`
	HTTP                 struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
}

// DBPath returns the SQLite database location under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "scanner.db")
}

// StatePath returns the reposter checkpoint file location.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "reposter_state.json")
}

// Load reads the config file, writing defaults on first run. A local .env
// file is loaded first, and environment variables take highest precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:              filepath.Join(os.Getenv("HOME"), ".scanner"),
		LogLevel:             "info",
		CacheRefreshSchedule: "@every 5m",
	}
	cfg.Reposter.PollIntervalSeconds = 5
	cfg.Reposter.FetchLimit = 50
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = ":8000"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if v := os.Getenv("BOT_AUTHOR_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Self.AuthorID = id
		}
	}
	if name := os.Getenv("BOT_AUTHOR_NAME"); name != "" {
		cfg.Self.AuthorName = name
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Reposter.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("REPOSTER_BACKFILL"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.Reposter.Backfill = true
		}
	}
	if v := os.Getenv("TARGET_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Reposter.AutoSubscribeChatID = id
		}
	}
	if dir := os.Getenv("SCANNER_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	return cfg, nil
}

// Save writes the config to disk atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
