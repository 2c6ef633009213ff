package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Reposter.PollIntervalSeconds != 5 {
		t.Errorf("poll interval = %d, want 5", cfg.Reposter.PollIntervalSeconds)
	}
	if cfg.Reposter.FetchLimit != 50 {
		t.Errorf("fetch limit = %d, want 50", cfg.Reposter.FetchLimit)
	}
	if cfg.Reposter.Backfill {
		t.Error("backfill must default to skipping the backlog")
	}

	// Defaults were persisted for the next run.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults not written: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	t.Setenv("BOT_TOKEN", "tok123")
	t.Setenv("BOT_AUTHOR_ID", "7124862056")
	t.Setenv("BOT_AUTHOR_NAME", "scanner_bot")
	t.Setenv("REPOSTER_BACKFILL", "true")
	t.Setenv("POLL_INTERVAL", "9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "tok123" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Self.AuthorID != 7124862056 || cfg.Self.AuthorName != "scanner_bot" {
		t.Errorf("self identity = %+v", cfg.Self)
	}
	if !cfg.Reposter.Backfill {
		t.Error("backfill override not applied")
	}
	if cfg.Reposter.PollIntervalSeconds != 9 {
		t.Errorf("poll interval = %d, want 9", cfg.Reposter.PollIntervalSeconds)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Telegram.Token = "persisted"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Telegram.Token != "persisted" {
		t.Errorf("token = %q after reload", loaded.Telegram.Token)
	}
}
