// Package config loads service configuration from an optional TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config contains every tunable of the service. All durations are expressed
// in plain integer units so the TOML file stays obvious.
type Config struct {
	Addr        string `toml:"addr"`
	DownloadDir string `toml:"download_dir"`
	CookiesFile string `toml:"cookies_file"`

	Workers           int `toml:"workers"`
	QueueSize         int `toml:"queue_size"`
	JobTimeoutMinutes int `toml:"job_timeout_minutes"`

	PollIntervalMillis int `toml:"poll_interval_millis"`
	StreamCeilingHours int `toml:"stream_ceiling_hours"`

	CleanupIntervalMinutes int `toml:"cleanup_interval_minutes"`
	CleanupAgeMinutes      int `toml:"cleanup_age_minutes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		DownloadDir:            "downloads",
		CookiesFile:            "cookies.txt",
		Workers:                4,
		QueueSize:              64,
		JobTimeoutMinutes:      30,
		PollIntervalMillis:     500,
		StreamCeilingHours:     24,
		CleanupIntervalMinutes: 5,
		CleanupAgeMinutes:      10,
	}
}

// Load reads the TOML file at path (skipped when path is empty or absent),
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Missing file is fine: defaults plus env apply.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AUDIOFETCH_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("AUDIOFETCH_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("AUDIOFETCH_COOKIES_FILE"); v != "" {
		c.CookiesFile = v
	}
	overrideInt(&c.Workers, "AUDIOFETCH_WORKERS")
	overrideInt(&c.QueueSize, "AUDIOFETCH_QUEUE_SIZE")
	overrideInt(&c.JobTimeoutMinutes, "AUDIOFETCH_JOB_TIMEOUT_MINUTES")
	overrideInt(&c.PollIntervalMillis, "AUDIOFETCH_POLL_INTERVAL_MILLIS")
	overrideInt(&c.StreamCeilingHours, "AUDIOFETCH_STREAM_CEILING_HOURS")
	overrideInt(&c.CleanupIntervalMinutes, "AUDIOFETCH_CLEANUP_INTERVAL_MINUTES")
	overrideInt(&c.CleanupAgeMinutes, "AUDIOFETCH_CLEANUP_AGE_MINUTES")
}

func overrideInt(dst *int, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return
	}
	*dst = parsed
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}
	if c.DownloadDir == "" {
		return errors.New("config: download_dir must not be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("config: queue_size must be positive, got %d", c.QueueSize)
	}
	if c.PollIntervalMillis <= 0 {
		return fmt.Errorf("config: poll_interval_millis must be positive, got %d", c.PollIntervalMillis)
	}
	if c.StreamCeilingHours <= 0 {
		return fmt.Errorf("config: stream_ceiling_hours must be positive, got %d", c.StreamCeilingHours)
	}
	return nil
}

func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutMinutes) * time.Minute
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func (c Config) StreamCeiling() time.Duration {
	return time.Duration(c.StreamCeilingHours) * time.Hour
}

func (c Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

func (c Config) CleanupAge() time.Duration {
	return time.Duration(c.CleanupAgeMinutes) * time.Minute
}
