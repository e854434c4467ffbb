package batch

import "github.com/nguyentantai21042004/batch-transcriber/internal/domain"

// EventType names a progress event.
type EventType string

const (
	EventFileDone     EventType = "file_done"
	EventFileFailed   EventType = "file_failed"
	EventBatchSummary EventType = "batch_summary"
)

// Event is a progress notification for a GUI or CLI front-end.
type Event struct {
	Event     EventType        `json:"event"`
	RunID     string           `json:"run_id,omitempty"`
	File      string           `json:"file,omitempty"`
	Index     int              `json:"index,omitempty"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
	Totals    *Totals          `json:"totals,omitempty"`
	State     State            `json:"state,omitempty"`
}

func (o *implOrchestrator) emit(e Event) {
	if o.listener != nil {
		o.listener(e)
	}
}

func fileEvent(runID string, index int, out Outcome) Event {
	e := Event{
		Event: EventFileDone,
		RunID: runID,
		File:  out.Input.Path,
		Index: index + 1,
	}
	if !out.Succeeded() {
		e.Event = EventFileFailed
		e.ErrorKind = out.Kind
		e.Message = out.Message
	}
	return e
}
