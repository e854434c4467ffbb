package deepgram

import (
	"context"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Request describes one pre-recorded transcription call.
type Request struct {
	Source      domain.InputFile
	AudioPath   string
	APIKey      string
	Language    string
	Model       string
	SmartFormat bool
}

// Client submits audio to Deepgram and returns a parsed transcript.
type Client interface {
	Transcribe(ctx context.Context, req Request) (*domain.TranscriptResult, error)
}
