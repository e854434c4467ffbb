package renderer

import (
	"context"

	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// Renderer persists a transcript as txt, json and pdf (and optionally docx).
type Renderer interface {
	Render(ctx context.Context, result *domain.TranscriptResult, outputDir, baseName string, overwrite bool) (domain.OutputArtifacts, error)
	// Existing returns the artifact paths for baseName and whether all of them are already on disk.
	Existing(outputDir, baseName string) (domain.OutputArtifacts, bool)
	// Owner returns the source file name recorded in baseName's JSON
	// artifact. ok is false when there is no readable JSON artifact.
	Owner(outputDir, baseName string) (source string, ok bool)
}
