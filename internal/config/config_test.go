package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.DownloadDir != "downloads" {
		t.Fatalf("download_dir = %q", cfg.DownloadDir)
	}
	if cfg.PollInterval() != 500*time.Millisecond {
		t.Fatalf("poll interval = %s", cfg.PollInterval())
	}
	if cfg.StreamCeiling() != 24*time.Hour {
		t.Fatalf("stream ceiling = %s", cfg.StreamCeiling())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiofetch.toml")
	content := "addr = \":9000\"\nworkers = 2\npoll_interval_millis = 100\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Workers != 2 || cfg.PollIntervalMillis != 100 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.QueueSize != Default().QueueSize {
		t.Fatalf("unset file values must keep defaults, got %+v", cfg)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("addr = [broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUDIOFETCH_ADDR", ":7000")
	t.Setenv("AUDIOFETCH_WORKERS", "8")
	t.Setenv("AUDIOFETCH_POLL_INTERVAL_MILLIS", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("addr = %q, want env override", cfg.Addr)
	}
	if cfg.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Workers)
	}
	if cfg.PollIntervalMillis != Default().PollIntervalMillis {
		t.Fatalf("invalid env value must be ignored, got %d", cfg.PollIntervalMillis)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }, "download_dir"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, "queue_size"},
		{"zero poll", func(c *Config) { c.PollIntervalMillis = 0 }, "poll_interval_millis"},
		{"zero ceiling", func(c *Config) { c.StreamCeilingHours = 0 }, "stream_ceiling"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errSub) {
				t.Fatalf("error %q does not mention %q", err, tc.errSub)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
