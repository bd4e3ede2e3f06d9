package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/vnykmshr/boundq/internal/testutil"
	bqerrors "github.com/vnykmshr/boundq/pkg/common/errors"
	"github.com/vnykmshr/boundq/pkg/queue"
	"github.com/vnykmshr/boundq/pkg/supervisor"
)

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	q, err := queue.New(4)
	testutil.AssertNoError(t, err)
	return q
}

func squareTask(_, i int) queue.Task {
	return queue.Bind(func(_ context.Context, n int) (any, error) { return n * n, nil }, i)
}

func result(seq uint64, value any, err error) supervisor.Result {
	return supervisor.Result{
		RunID:      "run-1",
		Seq:        seq,
		ProducerID: int(seq % 3),
		ConsumerID: 1,
		EnqueuedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		QueueDelay: 1500 * time.Microsecond,
		Duration:   20 * time.Microsecond,
		Value:      value,
		Error:      err,
	}
}

func TestDiscard(t *testing.T) {
	testutil.AssertNoError(t, Discard.Record(context.Background(), result(1, nil, nil)))
}

func TestMulti(t *testing.T) {
	var mu sync.Mutex
	var seen []uint64
	collect := supervisor.SinkFunc(func(_ context.Context, r supervisor.Result) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Seq)
		return nil
	})
	failA := supervisor.SinkFunc(func(context.Context, supervisor.Result) error { return errors.New("a down") })
	failB := supervisor.SinkFunc(func(context.Context, supervisor.Result) error { return errors.New("b down") })

	t.Run("all succeed", func(t *testing.T) {
		s := Multi(collect, nil, Discard)
		testutil.AssertNoError(t, s.Record(context.Background(), result(7, nil, nil)))
		testutil.AssertEqual(t, len(seen), 1)
		testutil.AssertEqual(t, seen[0], uint64(7))
	})

	t.Run("failures are joined and later sinks still run", func(t *testing.T) {
		s := Multi(failA, failB, collect)
		err := s.Record(context.Background(), result(8, nil, nil))
		testutil.AssertError(t, err)
		testutil.AssertEqual(t, strings.Contains(err.Error(), "a down"), true)
		testutil.AssertEqual(t, strings.Contains(err.Error(), "b down"), true)
		testutil.AssertEqual(t, len(seen), 2)
	})

	t.Run("empty", func(t *testing.T) {
		testutil.AssertNoError(t, Multi().Record(context.Background(), result(9, nil, nil)))
	})
}

func TestCSVSink(t *testing.T) {
	w := testutil.NewMockWriter()
	s, err := NewCSVSink(w)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, s.Record(context.Background(), result(1, 0.5, nil)))
	testutil.AssertNoError(t, s.Record(context.Background(), result(2, nil, errors.New("bad angle"))))
	testutil.AssertEqual(t, s.Rows(), int64(2))

	rows, err := csv.NewReader(strings.NewReader(w.String())).ReadAll()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(rows), 3)
	testutil.AssertEqual(t, strings.Join(rows[0], ","), strings.Join(CSVHeader, ","))
	testutil.AssertEqual(t, strings.Join(rows[1], ","), "run-1,1,1,1,1500,20,0.5,")
	testutil.AssertEqual(t, strings.Join(rows[2], ","), "run-1,2,2,1,1500,20,,bad angle")

	testutil.AssertNoError(t, s.Close())
	testutil.AssertNoError(t, s.Close())
	err = s.Record(context.Background(), result(3, nil, nil))
	testutil.AssertEqual(t, errors.Is(err, bqerrors.ErrClosed), true)
}

func TestCSVSinkConcurrent(t *testing.T) {
	w := testutil.NewMockWriter()
	s, err := NewCSVSink(w)
	testutil.AssertNoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = s.Record(context.Background(), result(uint64(i*25+j+1), j, nil))
			}
		}(i)
	}
	wg.Wait()

	rows, err := csv.NewReader(strings.NewReader(w.String())).ReadAll()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(rows), 201)
	testutil.AssertEqual(t, s.Rows(), int64(200))
}

func TestCSVSinkWriteError(t *testing.T) {
	w := testutil.NewMockWriter()
	w.SetAlwaysError(errors.New("disk full"))

	s, err := NewCSVSink(w)
	testutil.AssertNoError(t, err)

	err = s.Record(context.Background(), result(1, nil, nil))
	testutil.AssertError(t, err)
	var opErr *bqerrors.OperationError
	testutil.AssertEqual(t, errors.As(err, &opErr), true)
	testutil.AssertEqual(t, s.Rows(), int64(0))
}

func TestNewCSVSinkNilWriter(t *testing.T) {
	_, err := NewCSVSink(nil)
	testutil.AssertEqual(t, bqerrors.IsValidationError(err), true)
}

func TestLogSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := NewLogSink(logger)

	testutil.AssertNoError(t, s.Record(context.Background(), result(1, 0.5, nil)))
	testutil.AssertNoError(t, s.Record(context.Background(), result(2, nil, errors.New("bad angle"))))

	entries := hook.AllEntries()
	testutil.AssertEqual(t, len(entries), 2)

	testutil.AssertEqual(t, entries[0].Level, logrus.InfoLevel)
	testutil.AssertEqual(t, entries[0].Message, "task done")
	testutil.AssertEqual(t, entries[0].Data["queue_delay_us"], any(int64(1500)))
	testutil.AssertEqual(t, entries[0].Data["component"], any("sink"))

	testutil.AssertEqual(t, entries[1].Level, logrus.WarnLevel)
	testutil.AssertEqual(t, entries[1].Message, "task failed")

	hook.Reset()
	s.WithLevel(logrus.DebugLevel)
	testutil.AssertNoError(t, s.Record(context.Background(), result(3, 1.0, nil)))
	testutil.AssertEqual(t, hook.LastEntry().Level, logrus.DebugLevel)
}

func newRedisSink(t *testing.T) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := NewRedisSink(RedisConfig{Redis: client, KeyTTL: time.Hour})
	testutil.AssertNoError(t, err)
	return s, mr
}

func TestRedisSink(t *testing.T) {
	s, mr := newRedisSink(t)
	ctx := context.Background()

	testutil.AssertNoError(t, s.Record(ctx, result(1, 0.5, nil)))
	testutil.AssertNoError(t, s.Record(ctx, result(2, nil, errors.New("bad angle"))))

	key := s.Key("run-1")
	testutil.AssertEqual(t, key, "boundq:run-1:results")
	testutil.AssertEqual(t, mr.TTL(key), time.Hour)

	items, err := s.Results(ctx, "run-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(items), 2)

	var first, second record
	testutil.AssertNoError(t, json.Unmarshal(items[0], &first))
	testutil.AssertNoError(t, json.Unmarshal(items[1], &second))
	testutil.AssertEqual(t, first.Seq, uint64(1))
	testutil.AssertEqual(t, first.QueueDelayUS, int64(1500))
	testutil.AssertEqual(t, first.Value, any(0.5))
	testutil.AssertEqual(t, second.Error, "bad angle")

	empty, err := s.Results(ctx, "other-run")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(empty), 0)
}

func TestRedisSinkRejectsMissingRunID(t *testing.T) {
	s, _ := newRedisSink(t)
	r := result(1, nil, nil)
	r.RunID = ""
	err := s.Record(context.Background(), r)
	testutil.AssertEqual(t, bqerrors.IsValidationError(err), true)
}

func TestRedisSinkUnavailable(t *testing.T) {
	s, mr := newRedisSink(t)
	mr.Close()

	err := s.Record(context.Background(), result(1, nil, nil))
	testutil.AssertError(t, err)
	var opErr *bqerrors.OperationError
	testutil.AssertEqual(t, errors.As(err, &opErr), true)
	testutil.AssertEqual(t, opErr.Operation, "redis.push")
}

func TestNewRedisSinkDefaults(t *testing.T) {
	_, err := NewRedisSink(RedisConfig{})
	testutil.AssertEqual(t, bqerrors.IsValidationError(err), true)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s, err := NewRedisSink(RedisConfig{Redis: client, KeyPrefix: "demo"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, s.Key("abc"), "demo:abc:results")
	testutil.AssertEqual(t, s.config.Timeout, DefaultRedisConfig().Timeout)
	testutil.AssertEqual(t, s.config.KeyTTL, DefaultRedisConfig().KeyTTL)
}

func TestSinksWithSupervisor(t *testing.T) {
	// End to end: a supervisor run fanned out to CSV and Redis.
	s, _ := newRedisSink(t)
	w := testutil.NewMockWriter()
	csvSink, err := NewCSVSink(w)
	testutil.AssertNoError(t, err)

	q := newTestQueue(t)
	logger, _ := logtest.NewNullLogger()
	sup, err := supervisor.New(supervisor.Config{
		Queue:     q,
		Producer:  supervisor.Repeat(10, squareTask),
		Producers: 2,
		Consumers: 3,
		Sink:      Multi(csvSink, s),
		Logger:    logger,
	})
	testutil.AssertNoError(t, err)

	report, err := sup.Run(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, report.SinkErrors, int64(0))
	testutil.AssertEqual(t, csvSink.Rows(), int64(20))

	items, err := s.Results(context.Background(), sup.RunID())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(items), 20)
}
