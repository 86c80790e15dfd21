// Package worker implements the claim/execute/supervise loop at the
// heart of the queue. One Worker processes one claim at a time; the
// claimed job's handler runs in its own goroutine while the loop polls
// a completion channel under a wall-clock budget. A handler that never
// reports back is reclassified as lost — queue liveness never depends
// on handler correctness.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"rjq/internal/job"
	"rjq/internal/metrics"
	"rjq/internal/store"
)

// ErrJobLost is returned from Run when a job exceeds its timeout
// budget and Options.ContinueOnLost is false. The embedding
// application decides whether to exit or alert; the loop itself only
// reports the condition.
var ErrJobLost = errors.New("rjq: job lost")

// Handler is the user-supplied job function. It receives the job id
// and args and returns an optional result payload. It runs on its own
// goroutine and must not depend on unsynchronized shared state; a
// panic is recovered and stored as a failure.
type Handler func(id string, args []string) (*string, error)

// Options configures a Worker. The zero value gives the defaults:
// wait 10s, timeout 30s, 1 poll per second, result TTL 30s, stop the
// loop on a lost job, and run forever.
type Options struct {
	// Wait bounds each blocking claim attempt.
	Wait time.Duration
	// Timeout is the wall-clock budget a handler gets before its job
	// is reclassified as lost.
	Timeout time.Duration
	// PollsPerSecond is how often the completion signal is checked
	// while counting down the timeout.
	PollsPerSecond int
	// ResultTTL is the expiry applied to terminal records.
	ResultTTL time.Duration
	// ContinueOnLost keeps the loop going after a lost job instead of
	// returning ErrJobLost.
	ContinueOnLost bool
	// Once processes a single claim attempt and returns.
	Once bool
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Worker runs the claim loop for one named queue.
type Worker struct {
	store   store.Store
	queue   string
	handler Handler

	wait           time.Duration
	timeout        time.Duration
	pollEvery      time.Duration
	polls          int
	resultTTL      time.Duration
	continueOnLost bool
	once           bool
	logger         *slog.Logger
}

// outcome travels from the handler goroutine to the supervising loop
// through a single-use buffered channel.
type outcome struct {
	result    *string
	err       error
	backtrace string
}

// New constructs a Worker for the named queue.
func New(st store.Store, queue string, fn Handler, opts Options) *Worker {
	wait := opts.Wait
	if wait <= 0 {
		wait = 10 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pollsPerSecond := opts.PollsPerSecond
	if pollsPerSecond <= 0 {
		pollsPerSecond = 1
	}
	resultTTL := opts.ResultTTL
	if resultTTL <= 0 {
		resultTTL = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pollEvery := time.Second / time.Duration(pollsPerSecond)

	return &Worker{
		store:          st,
		queue:          queue,
		handler:        fn,
		wait:           wait,
		timeout:        timeout,
		pollEvery:      pollEvery,
		polls:          int(timeout / pollEvery),
		resultTTL:      resultTTL,
		continueOnLost: opts.ContinueOnLost,
		once:           opts.Once,
		logger:         logger,
	}
}

// Run processes claims until the context is cancelled, a store error
// occurs, a job is lost with ContinueOnLost unset, or (with Once) a
// single claim attempt completes. A claim wait that elapses with
// nothing to do is not an error; with Once it returns nil.
func (w *Worker) Run(ctx context.Context) error {
	idsKey := store.IDsKey(w.queue)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, ok, err := w.store.BlockingLeftPop(ctx, idsKey, w.wait)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if !ok {
			if w.once {
				return nil
			}
			continue
		}

		rec, err := w.load(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// The record expired between enqueue and claim. A race
				// inherent to TTL-backed records; treat like an empty
				// claim window.
				w.logger.Warn("claimed id has no record", "queue", w.queue, "id", id)
				if w.once {
					return nil
				}
				continue
			}
			return err
		}

		metrics.RecordClaim(w.queue)

		lost, err := w.execute(ctx, rec)
		if err != nil {
			return err
		}
		if lost && !w.continueOnLost {
			return fmt.Errorf("job %s: %w", rec.ID, ErrJobLost)
		}
		if w.once {
			return nil
		}
	}
}

func (w *Worker) load(ctx context.Context, id string) (*job.Record, error) {
	raw, err := w.store.Get(ctx, store.RecordKey(w.queue, id))
	if err != nil {
		return nil, err
	}
	rec, err := job.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return rec, nil
}

// execute runs one claimed job to a terminal state and persists it.
// The returned bool reports whether the job was lost.
func (w *Worker) execute(ctx context.Context, rec *job.Record) (bool, error) {
	key := store.RecordKey(w.queue, rec.ID)

	// Extend the record's life past the handler's whole budget so it
	// cannot expire while still legitimately running.
	rec.Claim()
	if err := w.persist(ctx, key, rec, w.timeout+w.resultTTL); err != nil {
		return false, err
	}

	w.logger.Info("job claimed", "queue", w.queue, "id", rec.ID)
	start := time.Now()

	// The handler goroutine is observed, never joined or cancelled. A
	// handler that outlives the timeout keeps running, but its late
	// outcome lands in the buffered channel and is discarded.
	done := make(chan outcome, 1)
	go w.invoke(rec.ID, rec.Args, done)

	out, got := w.supervise(done)
	switch {
	case !got:
		rec.MarkLost()
	case out.err != nil:
		rec.Fail(out.err.Error(), out.backtrace)
	default:
		rec.Finish(out.result)
	}

	if err := w.persist(ctx, key, rec, w.resultTTL); err != nil {
		return false, err
	}

	elapsed := time.Since(start)
	switch rec.Status {
	case job.StateLost:
		metrics.RecordOutcome(w.queue, "lost", elapsed.Milliseconds())
		w.logger.Error("job lost", "queue", w.queue, "id", rec.ID, "timeout", w.timeout)
		return true, nil
	case job.StateFailed:
		metrics.RecordOutcome(w.queue, "failed", elapsed.Milliseconds())
		w.logger.Warn("job failed", "queue", w.queue, "id", rec.ID, "error", rec.Error)
	default:
		metrics.RecordOutcome(w.queue, "finished", elapsed.Milliseconds())
		w.logger.Info("job finished", "queue", w.queue, "id", rec.ID, "duration_ms", elapsed.Milliseconds())
	}
	return false, nil
}

// invoke calls the handler and reports through done. A panicking
// handler is converted into a failure carrying its stack.
func (w *Worker) invoke(id string, args []string, done chan<- outcome) {
	defer func() {
		if r := recover(); r != nil {
			done <- outcome{
				err:       fmt.Errorf("handler panic: %v", r),
				backtrace: string(debug.Stack()),
			}
		}
	}()
	res, err := w.handler(id, args)
	done <- outcome{result: res, err: err}
}

// supervise polls the completion channel up to timeout*pollsPerSecond
// times. got is false when the budget ran out with the handler still
// in flight.
func (w *Worker) supervise(done <-chan outcome) (out outcome, got bool) {
	for i := 0; i < w.polls; i++ {
		select {
		case out = <-done:
			return out, true
		default:
		}
		time.Sleep(w.pollEvery)
	}
	// One last check so a handler finishing during the final sleep is
	// not misreported as lost.
	select {
	case out = <-done:
		return out, true
	default:
	}
	return outcome{}, false
}

func (w *Worker) persist(ctx context.Context, key string, rec *job.Record, ttl time.Duration) error {
	data, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", rec.ID, err)
	}
	return w.store.SetWithExpiry(ctx, key, string(data), ttl)
}
