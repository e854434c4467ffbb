package batch

import (
	"context"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Orchestrator runs a Job through extraction, transcription and rendering
// for every discovered input file.
type Orchestrator interface {
	Run(ctx context.Context, job domain.Job) (*Result, error)
	State() State
}

// Listener receives progress events. Calls are serialized and made
// synchronously from the orchestrator.
type Listener func(Event)
