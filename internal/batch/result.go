package batch

import (
	"errors"
	"time"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Status is the terminal status of one file.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome records what happened to one discovered file. It is written
// exactly once per file.
type Outcome struct {
	Input     domain.InputFile        `json:"input"`
	BaseName  string                  `json:"base_name"`
	Status    Status                  `json:"status"`
	Artifacts *domain.OutputArtifacts `json:"artifacts,omitempty"`
	Kind      domain.ErrorKind        `json:"error_kind,omitempty"`
	Stage     Stage                   `json:"stage,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Cached    bool                    `json:"cached,omitempty"`
	Duration  time.Duration           `json:"duration"`

	err   error
	fatal bool
}

// Succeeded reports whether the file was transcribed and rendered.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Err returns the error that caused a failure, if any.
func (o Outcome) Err() error {
	return o.err
}

// Totals counts outcomes.
type Totals struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Result is the ordered set of outcomes for one run, in discovery order.
type Result struct {
	RunID     string        `json:"run_id"`
	State     State         `json:"state"`
	Outcomes  []Outcome     `json:"outcomes"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Totals counts successes and failures.
func (r *Result) Totals() Totals {
	t := Totals{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			t.Success++
		} else {
			t.Failed++
		}
	}
	return t
}

// Failures returns the failed outcomes in discovery order.
func (r *Result) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Process exit codes for a CLI front-end.
const (
	ExitOK             = 0
	ExitPartialFailure = 1
	ExitAborted        = 2
	ExitSetupError     = 3
	ExitCancelled      = 130
)

// ExitCode maps a run's result and terminal error to a process exit code.
func ExitCode(res *Result, err error) int {
	switch {
	case errors.Is(err, domain.ErrCancelled):
		return ExitCancelled
	case res != nil && res.State == StateAborted:
		return ExitAborted
	case err != nil:
		return ExitSetupError
	case res == nil:
		return ExitSetupError
	case res.Totals().Failed > 0:
		return ExitPartialFailure
	default:
		return ExitOK
	}
}
