// Package workerpool implements the thread-pool collaborator (spec §6):
// add/join/go, where join drains in-flight tasks and go reopens the pool
// for a fresh batch - the cycle Builder.Save uses as its global barrier
// (spec §4.6).
package workerpool

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Task is one unit of work submitted to the pool.
type Task func(ctx context.Context) error

// Pool is a bounded worker pool wrapping conc's ContextPool (grounded on
// sourcegraph/conc appearing in the pack's cristian1one-virtual-vectorfs
// repo), with panic recovery on every task modeled on the teacher's
// utils.PanicCapturingGo.
type Pool struct {
	maxGoroutines int
	logger        *zap.SugaredLogger

	mu   sync.Mutex
	pool *pool.ContextPool
}

// New returns a Pool bounded at maxGoroutines concurrent tasks.
func New(maxGoroutines int, logger *zap.SugaredLogger) *Pool {
	p := &Pool{maxGoroutines: maxGoroutines, logger: logger}
	p.reopen()
	return p
}

func (p *Pool) reopen() {
	p.pool = pool.New().WithMaxGoroutines(p.maxGoroutines).WithContext(context.Background()).WithCancelOnError()
}

// Add submits task to the pool. A panicking task is recovered, logged and
// turned into an error rather than crashing the process.
func (p *Pool) Add(task Task) {
	p.mu.Lock()
	pl := p.pool
	p.mu.Unlock()

	pl.Go(func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("workerpool: task panicked: %v", r)
				p.logger.Errorw("recovered from task panic", "panic", r)
			}
		}()
		return task(ctx)
	})
}

// Join waits for every submitted task to complete and returns their
// combined error, if any. It does not reopen the pool; call Go for that.
func (p *Pool) Join() error {
	p.mu.Lock()
	pl := p.pool
	p.mu.Unlock()
	return pl.Wait()
}

// Go reopens the pool after Join, ready to accept a fresh batch of tasks.
func (p *Pool) Go() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reopen()
}
