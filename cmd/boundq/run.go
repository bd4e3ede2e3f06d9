package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/boundq/internal/config"
	"github.com/vnykmshr/boundq/internal/demo"
	"github.com/vnykmshr/boundq/internal/report"
	"github.com/vnykmshr/boundq/pkg/metrics"
	"github.com/vnykmshr/boundq/pkg/queue"
	"github.com/vnykmshr/boundq/pkg/sink"
	"github.com/vnykmshr/boundq/pkg/supervisor"
)

const queueName = "demo"

// runDemo executes the demo workload described by cfg and writes a summary
// to out. Everything it opens is closed before it returns.
func runDemo(ctx context.Context, cfg config.Config, logger *logrus.Logger, out io.Writer) (supervisor.Report, error) {
	var (
		q        queue.WorkQueue
		registry *metrics.Registry
	)

	if cfg.MetricsAddr != "" {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector())

		metricsCfg := metrics.DefaultConfig()
		metricsCfg.Registry = promReg
		mq, err := queue.NewWithConfigAndMetrics(cfg.Capacity, queueName, metricsCfg)
		if err != nil {
			return supervisor.Report{}, err
		}
		q, registry = mq, mq.Registry()

		stop, err := serveMetrics(cfg.MetricsAddr, promReg, logger)
		if err != nil {
			return supervisor.Report{}, err
		}
		defer stop()
	} else {
		plain, err := queue.New(cfg.Capacity)
		if err != nil {
			return supervisor.Report{}, err
		}
		q = plain
	}

	resultSink, closeSinks, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return supervisor.Report{}, err
	}
	defer closeSinks()

	sup, err := supervisor.New(supervisor.Config{
		Queue:       q,
		Producer:    demo.Producer(cfg.TasksPerProducer),
		Producers:   cfg.Producers,
		Consumers:   cfg.Consumers,
		Sink:        resultSink,
		TaskTimeout: cfg.TaskTimeout,
		Logger:      logger,
		Metrics:     registry,
		MetricsName: queueName,
	})
	if err != nil {
		return supervisor.Report{}, err
	}

	if cfg.ReportSpec != "" {
		reporter, err := report.New(cfg.ReportSpec, sup, logger)
		if err != nil {
			return supervisor.Report{}, err
		}
		reporter.Start()
		defer reporter.Stop()
	}

	rep, runErr := sup.Run(ctx)
	printSummary(out, rep)
	return rep, runErr
}

// openSinks builds the result sinks enabled in cfg and a func closing them.
func openSinks(ctx context.Context, cfg config.Config, logger *logrus.Logger) (supervisor.Sink, func(), error) {
	var (
		sinks   []supervisor.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.LogTasks {
		sinks = append(sinks, sink.NewLogSink(logger))
	}

	if cfg.CSVPath != "" {
		f, err := os.Create(cfg.CSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv sink: %w", err)
		}
		csvSink, err := sink.NewCSVSink(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		sinks = append(sinks, csvSink)
		closers = append(closers, func() {
			if err := csvSink.Close(); err != nil {
				logger.WithError(err).Warn("flush csv sink")
			}
			_ = f.Close()
		})
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("could not parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			closeAll()
			return nil, nil, fmt.Errorf("redis unavailable: %w", err)
		}

		redisSink, err := sink.NewRedisSink(sink.RedisConfig{Redis: rdb})
		if err != nil {
			_ = rdb.Close()
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, redisSink)
		closers = append(closers, func() { _ = rdb.Close() })
	}

	if len(sinks) == 0 {
		return sink.Discard, closeAll, nil
	}
	return sink.Multi(sinks...), closeAll, nil
}

// serveMetrics exposes reg on addr/metrics until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *logrus.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server")
		}
	}()
	logger.WithField("addr", ln.Addr().String()).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}

func printSummary(out io.Writer, r supervisor.Report) {
	fmt.Fprintf(out, "run %s\n", r.RunID)
	fmt.Fprintf(out, "  producers=%d consumers=%d capacity=%d\n", r.Producers, r.Consumers, r.Queue.Capacity)
	fmt.Fprintf(out, "  produced=%d consumed=%d failed=%d sink_errors=%d\n", r.Produced, r.Consumed, r.Failed, r.SinkErrors)
	fmt.Fprintf(out, "  queue delay: mean=%dus max=%dus\n", r.MeanQueueDelay.Microseconds(), r.MaxQueueDelay.Microseconds())
	fmt.Fprintf(out, "  elapsed=%s\n", r.Elapsed)
}
