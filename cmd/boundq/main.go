package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/boundq/internal/config"
	"github.com/vnykmshr/boundq/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Flag defaults come from cfg, so flags override
// the environment.
func newRootCmd(cfg config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "boundq",
		Short:        "Bounded producer/consumer work queue",
		Long:         "boundq runs producers and consumers over a fixed-capacity FIFO work queue and reports per-task queue delay.",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if _, err := runDemo(ctx, cfg, logger, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("run error: %w", err)
			}
			return nil
		},
	}

	flags := runCmd.Flags()
	flags.IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Queue capacity (BOUNDQ_CAPACITY)")
	flags.IntVar(&cfg.Producers, "producers", cfg.Producers, "Number of producers (BOUNDQ_PRODUCERS)")
	flags.IntVar(&cfg.Consumers, "consumers", cfg.Consumers, "Number of consumers (BOUNDQ_CONSUMERS)")
	flags.IntVar(&cfg.TasksPerProducer, "tasks", cfg.TasksPerProducer, "Tasks submitted by each producer (BOUNDQ_TASKS)")
	flags.DurationVar(&cfg.TaskTimeout, "task-timeout", cfg.TaskTimeout, "Per-task timeout, 0 for none (BOUNDQ_TASK_TIMEOUT)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error (BOUNDQ_LOG_LEVEL)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text|json (BOUNDQ_LOG_FORMAT)")
	flags.StringVar(&cfg.ReportSpec, "report-spec", cfg.ReportSpec, "Cron spec for progress lines, empty to disable (BOUNDQ_REPORT_SPEC)")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address (BOUNDQ_METRICS_ADDR)")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Push results to Redis at this URL (BOUNDQ_REDIS_URL)")
	flags.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Write per-task results to this CSV file (BOUNDQ_CSV_PATH)")
	flags.BoolVar(&cfg.LogTasks, "log-tasks", cfg.LogTasks, "Log every task result (BOUNDQ_LOG_TASKS)")
	rootCmd.AddCommand(runCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boundq %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
