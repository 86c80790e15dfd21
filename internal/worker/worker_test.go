package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"rjq/internal/job"
	"rjq/internal/queue"
	"rjq/internal/store"
)

func strptr(s string) *string { return &s }

// fastOpts keeps single-claim test runs short.
func fastOpts() Options {
	return Options{
		Wait:           100 * time.Millisecond,
		Timeout:        time.Second,
		PollsPerSecond: 20,
		ResultTTL:      time.Minute,
		Once:           true,
	}
}

func TestWorkerFinishesJob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	id, err := c.Enqueue(ctx, "", []string{"hello"}, time.Minute)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	handler := func(jobID string, args []string) (*string, error) {
		return strptr("hi from " + jobID), nil
	}
	w := New(st, "wq", handler, fastOpts())
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	state, err := c.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if state != job.StateFinished {
		t.Fatalf("expected FINISHED, got %s", state)
	}
	res, err := c.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res == nil || *res != "hi from "+id {
		t.Fatalf("unexpected result: %v", res)
	}
}

func TestWorkerStoresHandlerError(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	id, _ := c.Enqueue(ctx, "", nil, time.Minute)

	handler := func(string, []string) (*string, error) {
		return nil, errors.New("kaboom")
	}
	w := New(st, "wq", handler, fastOpts())
	// A handler error is stored, not surfaced by the loop.
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	state, _ := c.Status(ctx, id)
	if state != job.StateFailed {
		t.Fatalf("expected FAILED, got %s", state)
	}
	_, err := c.Result(ctx, id)
	var re *queue.ResultError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResultError, got %v", err)
	}
	if re.Message != "kaboom" {
		t.Fatalf("expected handler message, got %q", re.Message)
	}
}

func TestWorkerRecoversHandlerPanic(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	id, _ := c.Enqueue(ctx, "", nil, time.Minute)

	handler := func(string, []string) (*string, error) {
		panic("unexpected state")
	}
	w := New(st, "wq", handler, fastOpts())
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	_, err := c.Result(ctx, id)
	var re *queue.ResultError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResultError, got %v", err)
	}
	if re.State != job.StateFailed {
		t.Fatalf("expected FAILED, got %s", re.State)
	}
	if !strings.Contains(re.Message, "unexpected state") {
		t.Fatalf("panic message missing: %q", re.Message)
	}
	if re.Backtrace == "" {
		t.Fatal("expected a stack in the failure detail")
	}
}

func TestWorkerMarksSilentHandlerLost(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	id, _ := c.Enqueue(ctx, "", nil, time.Minute)

	block := make(chan struct{})
	defer close(block)
	handler := func(string, []string) (*string, error) {
		<-block
		return nil, nil
	}

	opts := fastOpts()
	opts.Timeout = time.Second
	opts.PollsPerSecond = 10
	w := New(st, "wq", handler, opts)

	start := time.Now()
	err := w.Run(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrJobLost) {
		t.Fatalf("expected ErrJobLost, got %v", err)
	}
	if elapsed > 1500*time.Millisecond {
		t.Fatalf("supervision overran its budget: %v", elapsed)
	}

	state, serr := c.Status(ctx, id)
	if serr != nil {
		t.Fatalf("status: %v", serr)
	}
	if state != job.StateLost {
		t.Fatalf("expected LOST, got %s", state)
	}
}

func TestWorkerContinuesAfterLost(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	lostID, _ := c.Enqueue(ctx, "lost-job", nil, time.Minute)
	okID, _ := c.Enqueue(ctx, "ok-job", nil, time.Minute)

	block := make(chan struct{})
	defer close(block)
	handler := func(jobID string, _ []string) (*string, error) {
		if jobID == lostID {
			<-block
		}
		return strptr("ok"), nil
	}

	opts := fastOpts()
	opts.Timeout = time.Second
	opts.PollsPerSecond = 10
	opts.ContinueOnLost = true
	w := New(st, "wq", handler, opts)

	// First claim loses, second succeeds; both return nil with Once.
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := w.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if state, _ := c.Status(ctx, lostID); state != job.StateLost {
		t.Fatalf("expected LOST for %s, got %s", lostID, state)
	}
	if state, _ := c.Status(ctx, okID); state != job.StateFinished {
		t.Fatalf("expected FINISHED for %s, got %s", okID, state)
	}
}

func TestWorkerClaimsFIFO(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	a, _ := c.Enqueue(ctx, "job-a", nil, time.Minute)
	b, _ := c.Enqueue(ctx, "job-b", nil, time.Minute)

	var mu sync.Mutex
	var order []string
	handler := func(jobID string, _ []string) (*string, error) {
		mu.Lock()
		order = append(order, jobID)
		mu.Unlock()
		return nil, nil
	}

	w := New(st, "wq", handler, fastOpts())
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := w.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != a || order[1] != b {
		t.Fatalf("expected claim order [%s %s], got %v", a, b, order)
	}
}

func TestWorkerEmptyClaimWindow(t *testing.T) {
	st := store.NewMemory()
	handler := func(string, []string) (*string, error) { return nil, nil }

	w := New(st, "wq", handler, fastOpts())
	// Nothing enqueued: a single-claim run ends cleanly.
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run on empty queue: %v", err)
	}
}

func TestWorkerSkipsExpiredRecord(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	// An id whose record is gone — the TTL race the claim path must
	// tolerate.
	if err := st.RightPush(ctx, store.IDsKey("wq"), "ghost"); err != nil {
		t.Fatalf("rpush: %v", err)
	}

	called := false
	handler := func(string, []string) (*string, error) {
		called = true
		return nil, nil
	}
	w := New(st, "wq", handler, fastOpts())
	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if called {
		t.Fatal("handler must not run for a missing record")
	}
}

func TestWorkerLateResultIsDiscarded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := queue.New(st, "wq")

	id, _ := c.Enqueue(ctx, "", nil, time.Minute)

	release := make(chan struct{})
	finished := make(chan struct{})
	handler := func(string, []string) (*string, error) {
		<-release
		close(finished)
		return strptr("too late"), nil
	}

	opts := fastOpts()
	opts.Timeout = 300 * time.Millisecond
	opts.PollsPerSecond = 10
	opts.ContinueOnLost = true
	w := New(st, "wq", handler, opts)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Let the abandoned handler complete after the loop moved on.
	close(release)
	<-finished
	time.Sleep(20 * time.Millisecond)

	state, err := c.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if state != job.StateLost {
		t.Fatalf("late result must not overwrite LOST, got %s", state)
	}
}
