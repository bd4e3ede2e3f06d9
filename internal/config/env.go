package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// named) into the process environment. Variables already set win. A missing
// file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// FromEnv overlays BOUNDQ_* environment variables onto cfg. Unparseable values
// are ignored.
func FromEnv(cfg *Config) {
	setInt(&cfg.Capacity, "BOUNDQ_CAPACITY")
	setInt(&cfg.Producers, "BOUNDQ_PRODUCERS")
	setInt(&cfg.Consumers, "BOUNDQ_CONSUMERS")
	setInt(&cfg.TasksPerProducer, "BOUNDQ_TASKS")
	if v := os.Getenv("BOUNDQ_TASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TaskTimeout = d
		}
	}
	setString(&cfg.LogLevel, "BOUNDQ_LOG_LEVEL")
	setString(&cfg.LogFormat, "BOUNDQ_LOG_FORMAT")
	setString(&cfg.ReportSpec, "BOUNDQ_REPORT_SPEC")
	setString(&cfg.MetricsAddr, "BOUNDQ_METRICS_ADDR")
	setString(&cfg.RedisURL, "BOUNDQ_REDIS_URL")
	setString(&cfg.CSVPath, "BOUNDQ_CSV_PATH")
	if v := os.Getenv("BOUNDQ_LOG_TASKS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogTasks = b
		}
	}
}

// Load returns the defaults overlaid with .env and the environment.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	cfg := Default()
	FromEnv(&cfg)
	return cfg, nil
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
