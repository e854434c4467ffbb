package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolLimitsConcurrency(t *testing.T) {
	p := newPool(2)
	var active, peak, done int32

	for i := 0; i < 6; i++ {
		err := p.submit(context.Background(), func() {
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&peak)
				if n <= cur || atomic.CompareAndSwapInt32(&peak, cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			atomic.AddInt32(&done, 1)
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	p.wait()

	if done != 6 {
		t.Errorf("done = %d, want 6", done)
	}
	if peak > 2 {
		t.Errorf("peak = %d, want <= 2", peak)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	p := newPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	if err := p.submit(ctx, func() { ran = true }); !errors.Is(err, context.Canceled) {
		t.Errorf("submit() = %v, want context.Canceled", err)
	}
	p.wait()
	if ran {
		t.Error("task ran after cancel")
	}
}
