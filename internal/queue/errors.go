package queue

import "rjq/internal/job"

// ResultError is returned by Client.Result when the job is in any
// state other than FINISHED. Callers branch on State; for FAILED jobs
// Message and Backtrace carry the handler's error detail.
type ResultError struct {
	State     job.State
	Message   string
	Backtrace string
}

func (e *ResultError) Error() string {
	switch e.State {
	case job.StateQueued:
		return "rjq: job still queued"
	case job.StateRunning:
		return "rjq: job still running"
	case job.StateLost:
		return "rjq: job lost"
	case job.StateFailed:
		return "rjq: job failed: " + e.Message
	}
	return "rjq: result unavailable in state " + string(e.State)
}
