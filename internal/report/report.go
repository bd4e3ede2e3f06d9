// Package report logs periodic progress of a supervised run on a cron
// schedule.
package report

import (
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/boundq/pkg/supervisor"
)

// Snapshotter is anything that can report run progress; *supervisor.Supervisor
// satisfies it.
type Snapshotter interface {
	Snapshot() supervisor.Report
}

// Reporter logs a Snapshot line every time its schedule fires.
type Reporter struct {
	cron   *cron.Cron
	source Snapshotter
	log    logrus.FieldLogger
	ticks  atomic.Int64
}

// parser accepts standard five-field specs, an optional leading seconds field
// and descriptors such as "@every 5s".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New returns a Reporter for source on spec. It does not start until Start.
func New(spec string, source Snapshotter, logger logrus.FieldLogger) (*Reporter, error) {
	if source == nil {
		return nil, fmt.Errorf("report: snapshot source cannot be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Reporter{
		source: source,
		log:    logger.WithField("component", "reporter"),
	}
	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(r.log))),
	)

	if _, err := r.cron.AddFunc(spec, r.Report); err != nil {
		return nil, fmt.Errorf("invalid report spec '%s': %w", spec, err)
	}
	return r, nil
}

// Start begins reporting in the background.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a report in progress.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
}

// Ticks returns how many reports have been logged.
func (r *Reporter) Ticks() int64 {
	return r.ticks.Load()
}

// Report logs one progress line now.
func (r *Reporter) Report() {
	s := r.source.Snapshot()
	r.ticks.Add(1)

	r.log.WithFields(logrus.Fields{
		"run_id":            s.RunID,
		"produced":          s.Produced,
		"consumed":          s.Consumed,
		"failed":            s.Failed,
		"queue_len":         s.Queue.Len,
		"queue_state":       s.Queue.State.String(),
		"waiting_producers": s.Queue.WaitingProducers,
		"waiting_consumers": s.Queue.WaitingConsumers,
		"mean_queue_delay":  s.MeanQueueDelay,
		"elapsed":           s.Elapsed,
	}).Info("progress")
}
