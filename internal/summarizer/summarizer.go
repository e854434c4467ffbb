package summarizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nguyentantai21042004/batch-transcriber/internal/renderer"
)

const summaryPrompt = `You are an expert analyst of recorded talks and interviews. Using the transcript below, write a DETAILED summary in the same language as the transcript.

Requirements:
- Start with a one-sentence heading describing the overall topic
- List ALL main points in the order they appear
- Explain each point, including caveats, tips and important warnings
- Keep domain-specific terms in their original form
- Use markdown: headings, bullet points, bold for key terms
- End with a "Key takeaways" section when something deserves emphasis

Transcript (language: %s):
---
%s
---`

// ErrNoKeys is returned when summaries are requested without any API key.
var ErrNoKeys = errors.New("no Gemini API keys configured")

// SummarizeAll reads every JSON transcript in transcriptDir, calls Gemini
// for each one without an existing summary, and writes <base>.md and
// <base>.docx into destDir.
func (s *implSummarizer) SummarizeAll(ctx context.Context, transcriptDir, destDir string) (Report, error) {
	var report Report
	if len(s.apiKeys) == 0 {
		return report, ErrNoKeys
	}

	files, err := discoverTranscripts(transcriptDir)
	if err != nil {
		return report, fmt.Errorf("discover transcripts: %w", err)
	}

	if len(files) == 0 {
		s.logger.Info(ctx, "No transcripts found in %s", transcriptDir)
		return report, nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return report, fmt.Errorf("create dest dir: %w", err)
	}

	s.logger.Info(ctx, "Found %d transcripts to summarize", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := strings.TrimSuffix(filepath.Base(path), ".json")
		mdPath := filepath.Join(destDir, name+".md")
		if _, err := os.Stat(mdPath); err == nil {
			s.logger.Debug(ctx, "Summary for %s already exists", name)
			report.Skipped++
			continue
		}

		s.logger.Info(ctx, "[%d/%d] Summarizing: %s", i+1, len(files), name)

		transcript, err := renderer.ReadJSON(path)
		if err != nil {
			s.logger.Error(ctx, "Failed to read %s: %v", path, err)
			report.Failed++
			continue
		}
		if strings.TrimSpace(transcript.Text) == "" {
			s.logger.Warn(ctx, "Transcript %s is empty, skipping", name)
			report.Skipped++
			continue
		}

		language := transcript.Language
		if language == "" {
			language = "unknown"
		}
		summary, err := s.callGemini(ctx, fmt.Sprintf(summaryPrompt, language, transcript.Text))
		if err != nil {
			s.logger.Error(ctx, "Failed to summarize %s: %v", name, err)
			report.Failed++
			continue
		}

		md := fmt.Sprintf("# %s\n\n_%s_\n\n%s\n",
			name,
			s.now().Format("2006-01-02 15:04"),
			strings.TrimSpace(summary),
		)

		if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
			s.logger.Error(ctx, "Failed to write %s: %v", mdPath, err)
			report.Failed++
			continue
		}

		docxPath := filepath.Join(destDir, name+".docx")
		if err := markdownToDocx(name, summary, docxPath); err != nil {
			s.logger.Warn(ctx, "Failed to write %s: %v", docxPath, err)
		}

		s.logger.Info(ctx, "[DONE] %s -> %s", name, mdPath)
		report.Written++
	}

	s.logger.Info(ctx, "Summary complete: %d written, %d skipped, %d failed", report.Written, report.Skipped, report.Failed)
	return report, nil
}

// callGemini sends the prompt to Gemini and returns the summary text.
// Rotates API keys on 429 / quota errors.
func (s *implSummarizer) callGemini(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for range s.apiKeys {
		key, idx := s.key()

		text, err := s.generate(ctx, key, s.model, prompt)
		if err == nil {
			return text, nil
		}
		if !isQuotaError(err) {
			return "", err
		}

		s.logger.Warn(ctx, "Key %d rate limited, rotating...", idx+1)
		s.rotateKey()
		lastErr = err
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func (s *implSummarizer) key() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKeys[s.currentKey], s.currentKey
}

func (s *implSummarizer) rotateKey() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
}

func discoverTranscripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) == ".json" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}
