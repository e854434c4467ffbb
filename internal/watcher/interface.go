package watcher

import "context"

// Watcher monitors the input directory and triggers a batch run when new
// media files appear.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// Trigger runs one batch over the input directory. Runs never overlap.
type Trigger func(ctx context.Context) error
