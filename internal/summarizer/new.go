package summarizer

import (
	"context"
	"sync"
	"time"

	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
)

// DefaultModel is used when no Gemini model is configured.
const DefaultModel = "gemini-2.5-flash"

// generateFunc sends prompt to the model using key and returns the text.
type generateFunc func(ctx context.Context, key, model, prompt string) (string, error)

type implSummarizer struct {
	mu         sync.Mutex
	apiKeys    []string
	currentKey int
	logger     logger.Logger
	model      string
	generate   generateFunc
	now        func() time.Time
}

// New creates a Summarizer that rotates through the supplied Gemini API keys.
func New(apiKeys []string, model string, log logger.Logger) Summarizer {
	if model == "" {
		model = DefaultModel
	}
	return &implSummarizer{
		apiKeys:  apiKeys,
		logger:   log,
		model:    model,
		generate: geminiGenerate,
		now:      time.Now,
	}
}
