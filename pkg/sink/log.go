package sink

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/boundq/pkg/supervisor"
)

// LogSink logs each result as one structured entry, the way the demo harness
// reports per-task queue delay.
type LogSink struct {
	log   logrus.FieldLogger
	level logrus.Level
}

// NewLogSink logs successful results at info level and failures at warn level.
// A nil logger uses logrus.StandardLogger().
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{
		log:   logger.WithField("component", "sink"),
		level: logrus.InfoLevel,
	}
}

// WithLevel sets the level used for successful results.
func (s *LogSink) WithLevel(level logrus.Level) *LogSink {
	s.level = level
	return s
}

// Record implements supervisor.Sink. It never fails.
func (s *LogSink) Record(_ context.Context, r supervisor.Result) error {
	entry := s.log.WithFields(logrus.Fields{
		"run_id":         r.RunID,
		"seq":            r.Seq,
		"producer":       r.ProducerID,
		"consumer":       r.ConsumerID,
		"queue_delay_us": r.QueueDelay.Microseconds(),
		"duration_us":    r.Duration.Microseconds(),
	})

	if r.Error != nil {
		entry.WithError(r.Error).Warn("task failed")
		return nil
	}

	entry.WithField("value", r.Value).Log(s.level, "task done")
	return nil
}
