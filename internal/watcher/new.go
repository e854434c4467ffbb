package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/batch-transcriber/internal/logger"
)

// DefaultSettle is how long the directory must stay quiet before a run starts.
const DefaultSettle = 2 * time.Second

// New creates a Watcher on inputDir.
func New(inputDir string, trigger Trigger, log logger.Logger, settle time.Duration) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(inputDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if settle <= 0 {
		settle = DefaultSettle
	}

	return &implWatcher{
		inputDir: inputDir,
		trigger:  trigger,
		logger:   log,
		watcher:  watcher,
		settle:   settle,
		kick:     make(chan struct{}, 1),
	}, nil
}
