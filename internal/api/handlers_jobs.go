package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"rjq/internal/config"
	"rjq/internal/job"
	"rjq/internal/metrics"
	"rjq/internal/queue"
	"rjq/internal/store"
)

type EnqueueRequest struct {
	ID         string   `json:"id,omitempty"`
	Args       []string `json:"args"`
	TTLSeconds int      `json:"ttlSeconds,omitempty"`
}

type EnqueueResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	ID      string `json:"id,omitempty"`
	Status  string `json:"status,omitempty"`
}

type ResultResponse struct {
	Success   bool    `json:"success"`
	Code      string  `json:"code,omitempty"`
	Error     string  `json:"error,omitempty"`
	Backtrace string  `json:"backtrace,omitempty"`
	ID        string  `json:"id,omitempty"`
	Result    *string `json:"result,omitempty"`
}

type QueueInfoResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Queue   string `json:"queue,omitempty"`
	Pending int64  `json:"pending"`
}

type QueueDropResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// enqueueHandler creates a QUEUED job record and appends its id to the
// pending list.
func enqueueHandler(c *fiber.Ctx) error {
	q := c.Locals("queue").(*queue.Client)

	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(EnqueueResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid JSON body",
		})
	}

	ttl := req.TTLSeconds
	if ttl <= 0 {
		ttl = enqueueTTLSeconds(c)
	}

	id, err := q.Enqueue(c.Context(), req.ID, req.Args, time.Duration(ttl)*time.Second)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(EnqueueResponse{
			Success: false,
			Code:    "STORE_ERROR",
			Error:   err.Error(),
		})
	}

	metrics.RecordEnqueue(q.Name())

	return c.Status(fiber.StatusCreated).JSON(EnqueueResponse{
		Success: true,
		ID:      id,
	})
}

// statusHandler returns the lifecycle state of a job.
func statusHandler(c *fiber.Ctx) error {
	q := c.Locals("queue").(*queue.Client)
	id := c.Params("id")

	state, err := q.Status(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(StatusResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found or expired",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(StatusResponse{
			Success: false,
			Code:    "STORE_ERROR",
			Error:   err.Error(),
		})
	}

	return c.JSON(StatusResponse{
		Success: true,
		ID:      id,
		Status:  string(state),
	})
}

// resultHandler returns the stored result of a FINISHED job. Any other
// state maps to an error code the caller can branch on.
func resultHandler(c *fiber.Ctx) error {
	q := c.Locals("queue").(*queue.Client)
	id := c.Params("id")

	result, err := q.Result(c.Context(), id)
	if err != nil {
		var re *queue.ResultError
		if errors.As(err, &re) {
			status, code := resultErrorStatus(re.State)
			return c.Status(status).JSON(ResultResponse{
				Success:   false,
				Code:      code,
				Error:     re.Error(),
				Backtrace: re.Backtrace,
				ID:        id,
			})
		}
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ResultResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found or expired",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(ResultResponse{
			Success: false,
			Code:    "STORE_ERROR",
			Error:   err.Error(),
		})
	}

	return c.JSON(ResultResponse{
		Success: true,
		ID:      id,
		Result:  result,
	})
}

// queueInfoHandler reports the pending-list length.
func queueInfoHandler(c *fiber.Ctx) error {
	q := c.Locals("queue").(*queue.Client)

	n, err := q.PendingLen(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(QueueInfoResponse{
			Success: false,
			Code:    "STORE_ERROR",
			Error:   err.Error(),
		})
	}

	return c.JSON(QueueInfoResponse{
		Success: true,
		Queue:   q.Name(),
		Pending: n,
	})
}

// queueDropHandler clears the pending list. Records keep their TTL.
func queueDropHandler(c *fiber.Ctx) error {
	q := c.Locals("queue").(*queue.Client)

	if err := q.Drop(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(QueueDropResponse{
			Success: false,
			Code:    "STORE_ERROR",
			Error:   err.Error(),
		})
	}

	return c.JSON(QueueDropResponse{Success: true})
}

func resultErrorStatus(state job.State) (int, string) {
	switch state {
	case job.StateQueued:
		return fiber.StatusConflict, "JOB_QUEUED"
	case job.StateRunning:
		return fiber.StatusConflict, "JOB_RUNNING"
	case job.StateLost:
		return fiber.StatusGone, "JOB_LOST"
	case job.StateFailed:
		return fiber.StatusUnprocessableEntity, "JOB_FAILED"
	}
	return fiber.StatusInternalServerError, "INTERNAL_ERROR"
}

func enqueueTTLSeconds(c *fiber.Ctx) int {
	if val := c.Locals("config"); val != nil {
		if cfg, ok := val.(*config.Config); ok && cfg.Queue.EnqueueTTLSeconds > 0 {
			return cfg.Queue.EnqueueTTLSeconds
		}
	}
	return 30
}
