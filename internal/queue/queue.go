// Package queue implements the producer-side client: enqueue jobs,
// poll their status, fetch results, and drop the pending list. Every
// call goes straight to the store; no state is cached in-process.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rjq/internal/job"
	"rjq/internal/store"
)

// Client is a thin façade over the store for one named queue.
type Client struct {
	store store.Store
	name  string
}

// New returns a client for the named queue.
func New(st store.Store, name string) *Client {
	return &Client{store: st, name: name}
}

// Name returns the queue name.
func (c *Client) Name() string { return c.name }

// Enqueue creates a QUEUED record with the given TTL and appends its
// id to the pending list. When id is empty a fresh UUID is generated.
// Returns the job id.
func (c *Client) Enqueue(ctx context.Context, id string, args []string, ttl time.Duration) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	rec := job.New(id, args)

	data, err := rec.Encode()
	if err != nil {
		return "", fmt.Errorf("rjq: encode job %s: %w", rec.ID, err)
	}
	if err := c.store.SetWithExpiry(ctx, store.RecordKey(c.name, rec.ID), string(data), ttl); err != nil {
		return "", err
	}
	if err := c.store.RightPush(ctx, store.IDsKey(c.name), rec.ID); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Status returns the current lifecycle state of a job. A record that
// expired or never existed yields store.ErrNotFound.
func (c *Client) Status(ctx context.Context, id string) (job.State, error) {
	rec, err := c.load(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

// Result returns the stored result of a FINISHED job (possibly nil —
// a job may finish without a payload). Any other state yields a
// *ResultError describing why the result is unavailable.
func (c *Client) Result(ctx context.Context, id string) (*string, error) {
	rec, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != job.StateFinished {
		return nil, &ResultError{State: rec.Status, Message: rec.Error, Backtrace: rec.Backtrace}
	}
	return rec.Result, nil
}

// Drop deletes the pending-id list. Individual records are left to
// expire on their own TTL.
func (c *Client) Drop(ctx context.Context) error {
	return c.store.Delete(ctx, store.IDsKey(c.name))
}

// PendingLen returns the number of ids waiting to be claimed.
func (c *Client) PendingLen(ctx context.Context) (int64, error) {
	return c.store.ListLen(ctx, store.IDsKey(c.name))
}

func (c *Client) load(ctx context.Context, id string) (*job.Record, error) {
	raw, err := c.store.Get(ctx, store.RecordKey(c.name, id))
	if err != nil {
		return nil, err
	}
	rec, err := job.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("rjq: decode job %s: %w", id, err)
	}
	return rec, nil
}
