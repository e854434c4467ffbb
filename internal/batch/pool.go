package batch

import (
	"context"
	"sync"
)

// pool runs at most size tasks at once.
type pool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

func newPool(size int) *pool {
	return &pool{slots: make(chan struct{}, size)}
}

// submit blocks until a slot frees up, then runs task in a goroutine.
// It returns ctx's error without running task once ctx is done.
func (p *pool) submit(ctx context.Context, task func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		<-p.slots
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()
		task()
	}()
	return nil
}

// wait blocks until every submitted task has returned.
func (p *pool) wait() {
	p.wg.Wait()
}
