package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a per-file or batch failure.
type ErrorKind string

const (
	KindEmptyInput               ErrorKind = "empty_input"
	KindExtraction               ErrorKind = "extraction"
	KindAuth                     ErrorKind = "auth"
	KindQuotaOrRateLimit         ErrorKind = "quota_or_rate_limit"
	KindNetwork                  ErrorKind = "network"
	KindProvider                 ErrorKind = "provider"
	KindRender                   ErrorKind = "render"
	KindSkippedDueToAbort        ErrorKind = "skipped_due_to_abort"
	KindSkippedDueToCancellation ErrorKind = "skipped_due_to_cancellation"
	KindInternal                 ErrorKind = "internal"
)

var (
	// ErrEmptyInput is returned when the input directory holds no allowlisted files.
	ErrEmptyInput = errors.New("no supported audio or video files found")
	// ErrAuth is returned when the provider rejected the API key and the batch was aborted.
	ErrAuth = errors.New("transcription provider rejected credentials")
	// ErrCancelled is returned when the batch stopped on an external cancellation signal.
	ErrCancelled = errors.New("batch cancelled")
)

// ExtractionError is returned when the media tool is missing or fails.
type ExtractionError struct {
	InputPath string
	Stderr    string
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("extract audio from %s: %v: %s", e.InputPath, e.Err, e.Stderr)
	}
	return fmt.Sprintf("extract audio from %s: %v", e.InputPath, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TranscriptionError is returned by the transcription client.
type TranscriptionError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *TranscriptionError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("transcription %s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("transcription %s: %s", e.Kind, msg)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *TranscriptionError) Retryable() bool {
	return e.Kind == KindQuotaOrRateLimit || e.Kind == KindNetwork
}

// Fatal reports whether the error must abort the whole batch.
func (e *TranscriptionError) Fatal() bool {
	return e.Kind == KindAuth
}

// RenderError is returned when an output artifact cannot be written.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// KindOf classifies err. Unknown errors are reported as KindInternal.
func KindOf(err error) ErrorKind {
	var (
		extractErr    *ExtractionError
		transcribeErr *TranscriptionError
		renderErr     *RenderError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transcribeErr):
		return transcribeErr.Kind
	case errors.As(err, &extractErr):
		return KindExtraction
	case errors.As(err, &renderErr):
		return KindRender
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindSkippedDueToCancellation
	default:
		return KindInternal
	}
}

// IsFatal reports whether err must abort the batch.
func IsFatal(err error) bool {
	var transcribeErr *TranscriptionError
	if errors.As(err, &transcribeErr) {
		return transcribeErr.Fatal()
	}
	return errors.Is(err, ErrAuth)
}
