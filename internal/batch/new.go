package batch

import (
	"sync"

	"github.com/nguyentantai21042004/batch-transcriber/internal/deepgram"
	"github.com/nguyentantai21042004/batch-transcriber/internal/extractor"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
	"github.com/nguyentantai21042004/batch-transcriber/internal/renderer"
)

// Options tunes a run. Workers defaults to 1 (sequential).
type Options struct {
	Workers  int
	Listener Listener
}

type implOrchestrator struct {
	extractor extractor.Extractor
	client    deepgram.Client
	renderer  renderer.Renderer
	logger    logger.Logger
	workers   int
	listener  Listener

	mu    sync.Mutex
	state State
}

// New creates an Orchestrator.
func New(ext extractor.Extractor, client deepgram.Client, rend renderer.Renderer, log logger.Logger, opts Options) Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &implOrchestrator{
		extractor: ext,
		client:    client,
		renderer:  rend,
		logger:    log,
		workers:   opts.Workers,
		listener:  opts.Listener,
		state:     StateIdle,
	}
}
