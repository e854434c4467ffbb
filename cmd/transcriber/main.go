package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nguyentantai21042004/batch-transcriber/internal/batch"
	"github.com/nguyentantai21042004/batch-transcriber/internal/config"
	"github.com/nguyentantai21042004/batch-transcriber/internal/deepgram"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
	"github.com/nguyentantai21042004/batch-transcriber/internal/extractor"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
	"github.com/nguyentantai21042004/batch-transcriber/internal/renderer"
	"github.com/nguyentantai21042004/batch-transcriber/internal/summarizer"
	"github.com/nguyentantai21042004/batch-transcriber/internal/watcher"
	"github.com/nguyentantai21042004/batch-transcriber/pkg/executor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, flags, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return batch.ExitOK
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid arguments: %v\n", err)
		return batch.ExitSetupError
	}

	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", opts.envFile, err)
		return batch.ExitSetupError
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return batch.ExitSetupError
	}
	opts.apply(flags, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return batch.ExitSetupError
	}

	// Progress events own stdout when --events-json is set.
	var logOut io.Writer = os.Stdout
	if opts.eventsJSON {
		logOut = os.Stderr
	}
	log := logger.NewWithWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "========================================")
	log.Info(ctx, "Batch Transcriber")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "Model: %s | Language: %s | Workers: %d", cfg.Deepgram.Model, cfg.Deepgram.Language, cfg.Performance.MaxConcurrent)

	job := domain.Job{
		InputDir:    cfg.Paths.Input,
		OutputDir:   cfg.Paths.Output,
		APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		Language:    cfg.Deepgram.Language,
		Model:       cfg.Deepgram.Model,
		SmartFormat: cfg.SmartFormat(),
		Overwrite:   opts.overwrite,
	}
	if err := job.Validate(); err != nil {
		log.Error(ctx, "%v (set DEEPGRAM_API_KEY and --input)", err)
		return batch.ExitSetupError
	}

	exec := executor.New()
	ext := extractor.New(cfg.FFmpeg, cfg.Paths.Temp, exec, log)
	if err := ext.Available(); err != nil {
		log.Warn(ctx, "Audio extraction tool unavailable, every file will fail: %v", err)
	}

	client := deepgram.New(deepgram.Options{
		BaseURL:        cfg.Deepgram.BaseURL,
		Timeout:        cfg.Deepgram.Timeout,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
	}, log)

	rend := renderer.New(renderer.Options{
		TxtDir:      cfg.Paths.TxtDir,
		JSONDir:     cfg.Paths.JSONDir,
		PDFDir:      cfg.Paths.PDFDir,
		PDFMinimal:  cfg.Render.PDFMinimal,
		FontRegular: cfg.Render.FontRegular,
		FontBold:    cfg.Render.FontBold,
		Docx:        cfg.Render.Docx,
	}, log)

	var listener batch.Listener
	if opts.eventsJSON {
		listener = jsonEvents(os.Stdout)
	}
	orch := batch.New(ext, client, rend, log, batch.Options{
		Workers:  cfg.Performance.MaxConcurrent,
		Listener: listener,
	})

	var summ summarizer.Summarizer
	if cfg.Gemini.Enabled {
		keys := geminiKeys()
		if len(keys) == 0 {
			log.Warn(ctx, "Summaries requested but GEMINI_API_KEYS is empty, skipping")
		} else {
			summ = summarizer.New(keys, cfg.Gemini.Model, log)
		}
	}

	runBatch := func(ctx context.Context) (*batch.Result, error) {
		res, err := orch.Run(ctx, job)
		if summ != nil && res != nil && ctx.Err() == nil {
			jsonDir := cfg.Paths.JSONDir
			if jsonDir == "" {
				jsonDir = filepath.Join(cfg.Paths.Output, "json")
			}
			if _, serr := summ.SummarizeAll(ctx, jsonDir, filepath.Join(cfg.Paths.Output, "summaries")); serr != nil {
				log.Error(ctx, "Summaries failed: %v", serr)
			}
		}
		return res, err
	}

	res, err := runBatch(ctx)
	logResult(ctx, log, res, err)

	if !opts.watch {
		return batch.ExitCode(res, err)
	}
	if errors.Is(err, domain.ErrAuth) || errors.Is(err, domain.ErrCancelled) {
		return batch.ExitCode(res, err)
	}

	w, err := watcher.New(cfg.Paths.Input, func(ctx context.Context) error {
		res, err := runBatch(ctx)
		logResult(ctx, log, res, err)
		if errors.Is(err, domain.ErrEmptyInput) {
			return nil
		}
		return err
	}, log, cfg.Watch.Settle)
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		return batch.ExitSetupError
	}
	defer w.Stop()

	log.Info(ctx, "Watching %s. Press Ctrl+C to stop", cfg.Paths.Input)
	err = w.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "Watcher error: %v", err)
	}

	log.Info(ctx, "Batch Transcriber stopped")
	return watchExitCode(err)
}

// watchExitCode maps the watcher's terminal error to an exit code. Watch
// mode only ends on a signal or a watcher failure, so a clean stop is a
// cancellation, same as an interrupted one-shot run.
func watchExitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return batch.ExitCancelled
	}
	return batch.ExitSetupError
}

func logResult(ctx context.Context, log logger.Logger, res *batch.Result, err error) {
	switch {
	case res == nil && err != nil:
		log.Error(ctx, "Batch not started: %v", err)
		return
	case err != nil:
		log.Error(ctx, "Batch ended early: %v", err)
	}
	if res == nil {
		return
	}
	for _, f := range res.Failures() {
		log.Warn(ctx, "  FAILED %s [%s] %s", f.Input.Name(), f.Kind, f.Message)
	}
}

// jsonEvents returns a listener that prints one JSON object per line.
func jsonEvents(w io.Writer) batch.Listener {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(e batch.Event) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(e)
	}
}
