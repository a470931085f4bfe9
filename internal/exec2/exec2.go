// Package exec2 implements the Parallel Executor: a bounded worker pool
// that runs a unit-of-work function across a slice of contexts, plus a
// shared-state mutation primitive and a progress tick.
//
// Grounded on distri's internal/batch.scheduler: a channel-fed worker
// pool driven by golang.org/x/sync/errgroup, with a mutex-guarded status
// display gated on whether stdout is a terminal (mattn/go-isatty).
// Dispatch and completion order are intentionally undefined, matching
// §4.2 and §5: workers are independent OS threads, suspending only at
// external-process boundaries. Each item's processing is recorded as an
// internal/trace event on its worker slot, same as distri's batch
// scheduler; the trace sink is a no-op until a caller enables one via
// trace.Enable, so this costs nothing when tracing isn't requested.
package exec2

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/vector-atg/atgdriver/internal/trace"
)

// Pool is a bounded worker pool plus one shared-state mutex, scoped to a
// single RunParallel call or a sequence of them.
type Pool struct {
	Workers int // defaults to runtime.NumCPU() when <= 0

	mu     sync.Mutex // guards shared state passed to WithSharedState
	ticks  int64
	ticked int64

	statusMu   sync.Mutex
	status     []string
	lastStatus time.Time
	isTerminal bool
}

// New returns a Pool sized to workers, or runtime.NumCPU() if workers<=0.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		Workers:    workers,
		status:     make([]string, workers+1),
		isTerminal: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// RunParallel schedules fn(ctx) for every element of contexts on the
// pool's fixed-size worker set. It blocks until every element has been
// processed or the first error is returned by any fn call — at which
// point remaining work is abandoned and that error is returned.
//
// RunParallel uses len(contexts) as the step count; RunParallelSteps's
// steps argument is purely informational: it sizes the status line's "N of M"
// counter (useful when contexts represents e.g. routines but the caller
// wants progress reported against a different total, such as
// environments).
func RunParallel(ctx context.Context, pool *Pool, contexts []interface{}, fn func(ctx context.Context, item interface{}) error) error {
	return runParallel(ctx, pool, contexts, len(contexts), fn)
}

// RunParallelSteps is RunParallel with an explicit step count used only
// for the status line (see Baseliner's "N+3" progress steps in §4.8).
func RunParallelSteps(ctx context.Context, pool *Pool, contexts []interface{}, steps int, fn func(ctx context.Context, item interface{}) error) error {
	return runParallel(ctx, pool, contexts, steps, fn)
}

func runParallel(ctx context.Context, pool *Pool, contexts []interface{}, steps int, fn func(ctx context.Context, item interface{}) error) error {
	work := make(chan interface{}, len(contexts))
	for _, c := range contexts {
		work <- c
	}
	close(work)

	eg, egCtx := errgroup.WithContext(ctx)
	var done int64
	var doneMu sync.Mutex

	for i := 0; i < pool.Workers; i++ {
		i := i
		eg.Go(func() error {
			for item := range work {
				if err := egCtx.Err(); err != nil {
					return err
				}
				pool.updateStatus(i+1, fmt.Sprintf("working on %v", item))
				ev := trace.Event(fmt.Sprintf("%v", item), i+1)
				err := fn(egCtx, item)
				ev.Done()
				if err != nil {
					return err
				}
				doneMu.Lock()
				done++
				n := done
				doneMu.Unlock()
				pool.updateStatus(0, fmt.Sprintf("%d of %d done", n, steps))
				pool.updateStatus(i+1, "idle")
			}
			return nil
		})
	}
	return eg.Wait()
}

// WithSharedState scopes a single acquisition of the pool's shared-state
// lock around fn, releasing it on every exit path (including panics)
// before returning. Use it to guard the in-memory dependency/routine
// maps built by the Dependency Discoverer (§4.4, §5) while workers write
// concurrently.
func (p *Pool) WithSharedState(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

// Tick redraws the pool's status display (only when stdout is a
// terminal). It does not advance any counter; the "N of M done" line
// advances only as RunParallel items finish.
func (p *Pool) Tick() {
	p.updateStatus(0, "")
}

func (p *Pool) updateStatus(idx int, newStatus string) {
	if !p.isTerminal {
		return
	}
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	if newStatus != "" {
		if diff := len(p.status[idx]) - len(newStatus); diff > 0 {
			newStatus += strings.Repeat(" ", diff)
		}
		p.status[idx] = newStatus
	}
	if time.Since(p.lastStatus) < 100*time.Millisecond {
		return
	}
	p.lastStatus = time.Now()
	for _, line := range p.status {
		fmt.Println(line)
	}
	fmt.Printf("\033[%dA", len(p.status)) // restore cursor position
}
