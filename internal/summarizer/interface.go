package summarizer

import "context"

// Summarizer reads JSON transcript artifacts and produces LLM-generated
// markdown and docx summaries.
type Summarizer interface {
	SummarizeAll(ctx context.Context, transcriptDir, destDir string) (Report, error)
}

// Report counts the outcome of one SummarizeAll call.
type Report struct {
	Written int
	Skipped int
	Failed  int
}
