package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
	"github.com/nguyentantai21042004/batch-transcriber/pkg/executor"
)

// Extract converts input to mono PCM WAV at a unique temporary path.
func (e *implExtractor) Extract(ctx context.Context, input domain.InputFile) (*domain.ExtractedAudio, error) {
	dir := e.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &domain.ExtractionError{InputPath: input.Path, Err: fmt.Errorf("create temp dir: %w", err)}
	}

	audioPath := filepath.Join(dir, fmt.Sprintf("%s-%s.wav", input.Stem(), uuid.NewString()))

	e.logger.Debug(ctx, "Extracting audio: %s -> %s", input.Path, audioPath)

	// -vn: drop video, -ac/-ar: channel count and sample rate,
	// pcm_s16le: uncompressed 16-bit, -nostdin: never block on a prompt
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", input.Path,
		"-vn",
		"-ac", strconv.Itoa(e.cfg.Channels),
		"-ar", strconv.Itoa(e.cfg.SampleRate),
		"-c:a", "pcm_s16le",
		audioPath,
	}

	if _, err := e.executor.Execute(ctx, e.cfg.Binary, args...); err != nil {
		// ffmpeg may leave a partial file behind
		_ = os.Remove(audioPath)
		extractErr := &domain.ExtractionError{InputPath: input.Path, Err: err}
		var cmdErr *executor.CommandError
		if errors.As(err, &cmdErr) {
			extractErr.Stderr = cmdErr.Stderr
			if cmdErr.NotFound {
				extractErr.Err = fmt.Errorf("%s not found in PATH: %w", e.cfg.Binary, cmdErr.Err)
			}
		}
		return nil, extractErr
	}

	if _, err := os.Stat(audioPath); err != nil {
		return nil, &domain.ExtractionError{
			InputPath: input.Path,
			Err:       fmt.Errorf("ffmpeg completed but output file is missing: %w", err),
		}
	}

	e.logger.Debug(ctx, "Audio extracted: %s", audioPath)
	return &domain.ExtractedAudio{Source: input, Path: audioPath}, nil
}

// Available reports whether the media tool can be found.
func (e *implExtractor) Available() error {
	if _, err := e.executor.LookPath(e.cfg.Binary); err != nil {
		return fmt.Errorf("%s unavailable: %w", e.cfg.Binary, err)
	}
	return nil
}
