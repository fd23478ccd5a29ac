// Package detach runs fire-and-forget tasks whose outcome nobody awaits.
package detach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner owns detached tasks. Failures and panics are logged and dropped;
// Shutdown waits for in-flight tasks so the process does not cut them off.
type Runner struct {
	log    *zap.Logger
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{log: logger.Named("detach"), base: base, cancel: cancel}
}

// Go starts fn in the background and returns immediately. The context given
// to fn is independent of the caller's and is cancelled only when Shutdown
// gives up waiting.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()
		err := r.run(fn)
		if err != nil {
			r.log.Warn("detached task failed", zap.String("task", name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return
		}
		r.log.Debug("detached task done", zap.String("task", name), zap.Duration("elapsed", time.Since(start)))
	}()
}

func (r *Runner) run(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(r.base)
}

// Shutdown waits for running tasks until ctx is done, then cancels them.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
