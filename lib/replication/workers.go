package replication

import (
	"context"
	"github.com/sourcegraph/conc"
	"sync"
	"time"
)

// workerPool runs background tasks on at most size concurrent workers. Every
// task gets its own timeout and is abandoned with a warning when it overruns.
type workerPool struct {
	sem     chan struct{}
	wg      conc.WaitGroup
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

func newWorkerPool(size int, timeout time.Duration) *workerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &workerPool{
		sem:     make(chan struct{}, max(size, 1)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit schedules task. It returns false once the pool is stopped.
func (p *workerPool) Submit(name string, task func(ctx context.Context) error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}

	p.wg.Go(func() {
		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			Logger.Warningf("%s: no worker became free in time", name)
			LogAppendsTotal.WithLabelValues("dropped").Inc()
			return
		}

		done := make(chan error, 1)
		go func() { done <- task(ctx) }()

		select {
		case err := <-done:
			if err != nil {
				Logger.Warningf("%s: %v", name, err)
				LogAppendsTotal.WithLabelValues("dropped").Inc()
				return
			}
			LogAppendsTotal.WithLabelValues("done").Inc()
		case <-ctx.Done():
			Logger.Warningf("%s: did not complete within %s, abandoned", name, p.timeout)
			LogAppendsTotal.WithLabelValues("timeout").Inc()
		}
	})
	return true
}

// Stop rejects new tasks and waits up to wait for running ones. Tasks still
// running after that are canceled. Stop returns false if tasks had to be canceled.
func (p *workerPool) Stop(wait time.Duration) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return true
	}
	p.stopped = true
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.cancel()
		return true
	case <-time.After(wait):
		Logger.Warningf("background tasks still running after %s, canceling", wait)
		p.cancel()
		<-drained
		return false
	}
}
