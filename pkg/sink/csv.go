package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	bqerrors "github.com/vnykmshr/boundq/pkg/common/errors"
	"github.com/vnykmshr/boundq/pkg/common/validation"
	"github.com/vnykmshr/boundq/pkg/supervisor"
)

// CSVHeader is the first row written by a CSVSink.
var CSVHeader = []string{
	"run_id", "seq", "producer_id", "consumer_id",
	"queue_delay_us", "duration_us", "value", "error",
}

// CSVSink writes one row per result to an io.Writer. Rows are flushed as they
// are written so a crash loses at most the row in flight.
type CSVSink struct {
	mu          sync.Mutex
	w           *csv.Writer
	wroteHeader bool
	closed      bool
	rows        int64
}

// NewCSVSink returns a sink writing to w. The header row is written with the
// first result.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	if err := validation.ValidateNotNil("sink", "writer", w); err != nil {
		return nil, err
	}
	return &CSVSink{w: csv.NewWriter(w)}, nil
}

// Record implements supervisor.Sink.
func (s *CSVSink) Record(_ context.Context, r supervisor.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return bqerrors.ErrClosed
	}

	if !s.wroteHeader {
		if err := s.w.Write(CSVHeader); err != nil {
			return bqerrors.NewOperationError("sink", "csv.header", err)
		}
		s.wroteHeader = true
	}

	rec := newRecord(r)
	value := ""
	if rec.Value != nil {
		value = fmt.Sprint(rec.Value)
	}
	row := []string{
		rec.RunID,
		strconv.FormatUint(rec.Seq, 10),
		strconv.Itoa(rec.ProducerID),
		strconv.Itoa(rec.ConsumerID),
		strconv.FormatInt(rec.QueueDelayUS, 10),
		strconv.FormatInt(rec.DurationUS, 10),
		value,
		rec.Error,
	}
	if err := s.w.Write(row); err != nil {
		return bqerrors.NewOperationError("sink", "csv.write", err)
	}

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return bqerrors.NewOperationError("sink", "csv.flush", err)
	}
	s.rows++
	return nil
}

// Rows returns the number of result rows written, excluding the header.
func (s *CSVSink) Rows() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Close stops accepting results. It does not close the underlying writer.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	return s.w.Error()
}
