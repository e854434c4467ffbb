package extractor

import (
	"context"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Extractor converts a media file into a temporary normalized audio file.
type Extractor interface {
	Extract(ctx context.Context, input domain.InputFile) (*domain.ExtractedAudio, error)
	Available() error
}
