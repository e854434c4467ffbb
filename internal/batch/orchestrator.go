package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/batch-transcriber/internal/deepgram"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
)

// run holds the mutable state of one Run call.
type run struct {
	id       string
	mu       sync.Mutex
	outcomes []Outcome
	recorded []bool
	fatal    *Outcome
	abort    context.CancelFunc
}

// Run discovers the job's input files and processes each one. The
// returned Result always holds one outcome per discovered file, in
// discovery order. The error is non-nil when the job was rejected
// before any work started, when a fatal error aborted the batch, or
// when ctx was cancelled.
func (o *implOrchestrator) Run(ctx context.Context, job domain.Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	files, err := Discover(job.InputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrEmptyInput, job.InputDir)
	}

	if err := o.transition(StateRunning); err != nil {
		return nil, err
	}

	r := &run{
		id:       uuid.NewString(),
		outcomes: make([]Outcome, len(files)),
		recorded: make([]bool, len(files)),
	}
	ctx = logger.WithRunID(ctx, r.id)
	runCtx, abort := context.WithCancel(ctx)
	defer abort()
	r.abort = abort

	started := time.Now()
	names := baseNames(files, func(base string) (string, bool) {
		return o.renderer.Owner(job.OutputDir, base)
	})
	o.logger.Info(ctx, "Starting batch: %d file(s), workers=%d, output=%s", len(files), o.workers, job.OutputDir)

	workers := newPool(o.workers)
	for i, f := range files {
		err := workers.submit(runCtx, func() {
			o.logger.Info(runCtx, "[%d/%d] Processing: %s", i+1, len(files), f.Name())
			o.record(ctx, r, i, o.processFile(runCtx, job, f, names[i]))
		})
		if err != nil {
			break
		}
	}
	workers.wait()

	state, runErr := o.finish(ctx, r, files, names)

	res := &Result{
		RunID:     r.id,
		State:     state,
		Outcomes:  r.outcomes,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	totals := res.Totals()
	o.emit(Event{Event: EventBatchSummary, RunID: r.id, Totals: &totals, State: state})
	o.logger.Info(ctx, "Batch %s: %d succeeded, %d failed, %d total in %s",
		state, totals.Success, totals.Failed, totals.Total, res.Duration.Round(time.Millisecond))

	if err := o.transition(state); err != nil {
		o.logger.Error(ctx, "batch state: %v", err)
	}
	return res, runErr
}

// processFile runs one file through extraction, transcription and
// rendering. Temporary audio is removed on every exit path.
func (o *implOrchestrator) processFile(ctx context.Context, job domain.Job, f domain.InputFile, baseName string) (out Outcome) {
	start := time.Now()
	stage := StageDiscovered
	out = Outcome{Input: f, BaseName: baseName}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error(ctx, "panic processing %s: %v\n%s", f.Name(), rec, debug.Stack())
			out = failure(out, stage, fmt.Errorf("panic: %v", rec))
			out.Kind = domain.KindInternal
			out.fatal = true
		}
		out.Duration = time.Since(start)
	}()

	overwrite := job.Overwrite
	if !overwrite {
		if arts, ok := o.renderer.Existing(job.OutputDir, baseName); ok {
			if src, _ := o.renderer.Owner(job.OutputDir, baseName); src == "" || src == f.Name() {
				o.logger.Info(ctx, "Outputs already exist for %s, skipping", f.Name())
				out.Status = StatusSuccess
				out.Stage = StageDone
				out.Cached = true
				out.Artifacts = &arts
				return out
			}
			o.logger.Warn(ctx, "Outputs %s belong to another source, regenerating for %s", baseName, f.Name())
			overwrite = true
		}
	}

	if err := ctx.Err(); err != nil {
		return failure(out, stage, err)
	}

	stage = StageExtracting
	audio, err := o.extractor.Extract(ctx, f)
	if err != nil {
		return failure(out, stage, err)
	}
	defer func() {
		if err := audio.Cleanup(); err != nil {
			o.logger.Warn(ctx, "failed to remove temp audio %s: %v", audio.Path, err)
		}
	}()

	stage = StageTranscribing
	result, err := o.client.Transcribe(ctx, deepgram.Request{
		Source:      f,
		AudioPath:   audio.Path,
		APIKey:      job.APIKey,
		Language:    job.LanguageParam(),
		Model:       job.Model,
		SmartFormat: job.SmartFormat,
	})
	if err != nil {
		return failure(out, stage, err)
	}
	result.Source = f
	if result.Model == "" {
		result.Model = job.Model
	}

	stage = StageRendering
	arts, err := o.renderer.Render(ctx, result, job.OutputDir, baseName, overwrite)
	if err != nil {
		return failure(out, stage, err)
	}

	out.Status = StatusSuccess
	out.Stage = StageDone
	out.Artifacts = &arts
	return out
}

func failure(out Outcome, stage Stage, err error) Outcome {
	out.Status = StatusFailure
	out.Stage = stage
	out.Kind = domain.KindOf(err)
	out.Message = err.Error()
	out.err = err
	out.fatal = domain.IsFatal(err)
	return out
}

// record stores a file's outcome and emits its event. A fatal outcome
// cancels the remaining work. Files interrupted by that abort are
// reported as skipped rather than failed on their own.
func (o *implOrchestrator) record(ctx context.Context, r *run, i int, out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !out.Succeeded() && !out.fatal && errors.Is(out.err, context.Canceled) {
		if r.fatal != nil {
			out.Kind = domain.KindSkippedDueToAbort
		} else {
			out.Kind = domain.KindSkippedDueToCancellation
		}
	}
	if out.fatal && r.fatal == nil {
		fatal := out
		r.fatal = &fatal
		o.logger.Error(ctx, "Fatal error on %s, aborting batch: %s", out.Input.Name(), out.Message)
		r.abort()
	}

	switch {
	case out.Succeeded():
		o.logger.Info(ctx, "Done: %s", out.Input.Name())
	case out.Kind == domain.KindSkippedDueToAbort, out.Kind == domain.KindSkippedDueToCancellation:
		o.logger.Warn(ctx, "Skipped %s: %s", out.Input.Name(), out.Kind)
	default:
		o.logger.Error(ctx, "Failed %s at %s: %s", out.Input.Name(), out.Stage, out.Message)
	}

	r.outcomes[i] = out
	r.recorded[i] = true
	o.emit(fileEvent(r.id, i, out))
}

// finish fills outcomes for files that never started and decides the
// terminal state.
func (o *implOrchestrator) finish(ctx context.Context, r *run, files []domain.InputFile, names []string) (State, error) {
	r.mu.Lock()
	aborted := r.fatal != nil
	r.mu.Unlock()

	kind := domain.KindSkippedDueToCancellation
	if aborted {
		kind = domain.KindSkippedDueToAbort
	}

	cancelled := false
	for i, f := range files {
		r.mu.Lock()
		done := r.recorded[i]
		r.mu.Unlock()
		if done {
			if r.outcomes[i].Kind == domain.KindSkippedDueToCancellation {
				cancelled = true
			}
			continue
		}
		if !aborted {
			cancelled = true
		}
		o.record(ctx, r, i, Outcome{
			Input:    f,
			BaseName: names[i],
			Status:   StatusFailure,
			Stage:    StageDiscovered,
			Kind:     kind,
			Message:  "not processed",
		})
	}

	switch {
	case aborted:
		if r.fatal.Kind == domain.KindAuth {
			return StateAborted, fmt.Errorf("%w: %s", domain.ErrAuth, r.fatal.Message)
		}
		return StateAborted, fmt.Errorf("batch aborted on %s: %s", r.fatal.Input.Name(), r.fatal.Message)
	case cancelled:
		cause := context.Cause(ctx)
		if cause == nil {
			cause = context.Canceled
		}
		return StateCancelled, fmt.Errorf("%w: %v", domain.ErrCancelled, cause)
	default:
		return StateCompleted, nil
	}
}
