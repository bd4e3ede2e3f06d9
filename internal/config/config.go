package config

import (
	"errors"
	"time"

	"github.com/vnykmshr/boundq/pkg/common/validation"
)

// Config is the runtime configuration of a boundq run.
type Config struct {
	// Queue and workload shape
	Capacity         int
	Producers        int
	Consumers        int
	TasksPerProducer int
	TaskTimeout      time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// ReportSpec is the cron spec for periodic progress lines. Empty disables it.
	ReportSpec string

	// MetricsAddr serves /metrics when set.
	MetricsAddr string

	// Result sinks. Each is enabled by being non-empty.
	RedisURL string
	CSVPath  string
	LogTasks bool
}

// Default returns the built-in defaults: a ten-slot queue shared by three
// producers submitting a hundred tasks each and five consumers.
func Default() Config {
	return Config{
		Capacity:         10,
		Producers:        3,
		Consumers:        5,
		TasksPerProducer: 100,
		LogLevel:         "info",
		LogFormat:        "text",
		ReportSpec:       "@every 1s",
	}
}

// Validate checks that cfg describes a runnable configuration.
func (c Config) Validate() error {
	return errors.Join(
		validation.ValidatePositive("config", "capacity", c.Capacity),
		validation.ValidateNonNegative("config", "producers", c.Producers),
		validation.ValidatePositive("config", "consumers", c.Consumers),
		validation.ValidateNonNegative("config", "tasks_per_producer", c.TasksPerProducer),
		validation.ValidateOneOf("config", "log_format", c.LogFormat, "text", "json"),
		validation.ValidateOneOf("config", "log_level", c.LogLevel,
			"trace", "debug", "info", "warn", "warning", "error"),
	)
}
