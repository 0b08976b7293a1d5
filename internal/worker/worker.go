package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noahxzhu/tiffin-client/internal/tiffin"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxInFlight = 4

// Op is one backend call. It runs off the UI loop and must not touch UI
// state.
type Op func(ctx context.Context) tiffin.Result

// Ticket identifies one dispatch. Gen increases per Key, so a UI can tell
// whether a completion belongs to its newest request.
type Ticket struct {
	Key string
	Gen uint64
}

// Completion is posted back to the UI loop once per dispatch.
type Completion struct {
	Ticket
	Result  tiffin.Result
	Elapsed time.Duration
}

// Poster hands a completion to the UI loop. Post must not block for long;
// it is called from the worker goroutine.
type Poster interface {
	Post(Completion)
}

type PosterFunc func(Completion)

func (f PosterFunc) Post(c Completion) { f(c) }

// Dispatcher runs ops on short-lived goroutines, at most maxInFlight at a
// time, and posts each result back through the Poster.
type Dispatcher struct {
	sem      *semaphore.Weighted
	logger   *slog.Logger
	poster   atomic.Pointer[Poster]
	inFlight atomic.Int64
	wg       sync.WaitGroup

	mu   sync.Mutex
	gens map[string]uint64
}

func NewDispatcher(maxInFlight int, poster Poster, logger *slog.Logger) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sem:    semaphore.NewWeighted(int64(maxInFlight)),
		logger: logger,
		gens:   make(map[string]uint64),
	}
	d.SetPoster(poster)
	return d
}

// SetPoster replaces the destination for completions. The TUI sets it once
// its program exists.
func (d *Dispatcher) SetPoster(p Poster) {
	if p == nil {
		d.poster.Store(nil)
		return
	}
	d.poster.Store(&p)
}

// Dispatch starts op and returns at once. Waiting for a free slot happens on
// the worker goroutine, never on the caller's.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, op Op) Ticket {
	d.mu.Lock()
	d.gens[key]++
	t := Ticket{Key: key, Gen: d.gens[key]}
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx, t, op)
	return t
}

func (d *Dispatcher) run(ctx context.Context, t Ticket, op Op) {
	defer d.wg.Done()
	start := time.Now()

	var res tiffin.Result
	if err := d.sem.Acquire(ctx, 1); err != nil {
		res = tiffin.Failed(tiffin.KindTransport, err.Error())
	} else {
		d.inFlight.Add(1)
		res = d.call(ctx, t, op)
		d.inFlight.Add(-1)
		d.sem.Release(1)
	}

	c := Completion{Ticket: t, Result: res, Elapsed: time.Since(start)}
	d.logger.Debug("Request completed", "key", t.Key, "gen", t.Gen, "kind", res.Kind.String(), "elapsed", c.Elapsed)

	p := d.poster.Load()
	if p == nil {
		d.logger.Warn("Dropping completion with no poster", "key", t.Key, "gen", t.Gen)
		return
	}
	(*p).Post(c)
}

func (d *Dispatcher) call(ctx context.Context, t Ticket, op Op) (res tiffin.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Request panicked", "key", t.Key, "panic", r)
			res = tiffin.Failed(tiffin.KindTransport, fmt.Sprintf("internal error: %v", r))
		}
	}()
	return op(ctx)
}

// IsCurrent reports whether c answers the newest dispatch for its key.
// Older completions are stale and should not be rendered.
func (d *Dispatcher) IsCurrent(c Completion) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gens[c.Key] == c.Gen
}

// InFlight is the number of ops currently executing.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Wait blocks until every dispatched op has posted its completion.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
