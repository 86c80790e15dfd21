package job

import "encoding/json"

// State represents the lifecycle state of a job record as stored in
// Redis. These values are part of the on-the-wire record format, so
// they must not change.
//
// Centralizing these here avoids scattering string literals like
// "QUEUED" or "FINISHED" across packages.
type State string

const (
	StateQueued   State = "QUEUED"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	StateFailed   State = "FAILED"
	StateLost     State = "LOST"
)

// Terminal reports whether no further transition may leave the state.
func (s State) Terminal() bool {
	switch s {
	case StateFinished, StateFailed, StateLost:
		return true
	}
	return false
}

// Record is the unit of work persisted in the store under
// {queue}:{id}. The id is immutable after creation; args are passed
// verbatim to the handler.
//
// Result holds the partial result while RUNNING and the final result
// when FINISHED. Error and Backtrace are set only when FAILED; the
// backtrace is optional diagnostic detail (a goroutine stack for
// recovered panics).
type Record struct {
	ID        string   `json:"id"`
	Status    State    `json:"status"`
	Result    *string  `json:"result,omitempty"`
	Error     string   `json:"error,omitempty"`
	Backtrace string   `json:"backtrace,omitempty"`
	Args      []string `json:"args"`
}

// New returns a QUEUED record for the given id and args.
func New(id string, args []string) *Record {
	if args == nil {
		args = []string{}
	}
	return &Record{ID: id, Status: StateQueued, Args: args}
}

// Claim transitions the record to RUNNING with no partial result.
// Claiming a terminal record is a no-op.
func (r *Record) Claim() {
	if r.Status.Terminal() {
		return
	}
	r.Status = StateRunning
	r.Result = nil
}

// Finish marks the record FINISHED with an optional result. A record
// already in a terminal state is left untouched.
func (r *Record) Finish(result *string) {
	if r.Status.Terminal() {
		return
	}
	r.Status = StateFinished
	r.Result = result
	r.Error = ""
	r.Backtrace = ""
}

// Fail marks the record FAILED with an error message and optional
// diagnostic detail.
func (r *Record) Fail(message, backtrace string) {
	if r.Status.Terminal() {
		return
	}
	r.Status = StateFailed
	r.Result = nil
	r.Error = message
	r.Backtrace = backtrace
}

// MarkLost records that the handler did not report completion before
// the supervision budget ran out.
func (r *Record) MarkLost() {
	if r.Status.Terminal() {
		return
	}
	r.Status = StateLost
	r.Result = nil
}

// Encode serializes the record for storage.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a stored record.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
