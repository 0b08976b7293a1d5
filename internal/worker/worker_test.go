package worker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noahxzhu/tiffin-client/internal/backendtest"
	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
)

type chanPoster chan Completion

func (c chanPoster) Post(done Completion) { c <- done }

type staticToken string

func (s staticToken) Token() string { return string(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, ch chanPoster) Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
		return Completion{}
	}
}

func TestDispatcher_DispatchReturnsBeforeOpFinishes(t *testing.T) {
	posted := make(chanPoster, 1)
	d := NewDispatcher(1, posted, quietLogger())

	release := make(chan struct{})
	start := time.Now()
	ticket := d.Dispatch(context.Background(), "stats", func(ctx context.Context) tiffin.Result {
		<-release
		return tiffin.Result{Kind: tiffin.KindOK}
	})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Dispatch() blocked for %v", elapsed)
	}
	if ticket.Key != "stats" || ticket.Gen != 1 {
		t.Errorf("Dispatch() = %+v, want stats/1", ticket)
	}

	select {
	case <-posted:
		t.Fatal("completion posted before op returned")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	c := receive(t, posted)
	if c.Ticket != ticket || !c.Result.OK() {
		t.Errorf("completion = %+v", c)
	}
	d.Wait()
}

func TestDispatcher_ConcurrentRequestsAgainstBackend(t *testing.T) {
	backend := backendtest.New(t)
	id := backend.AddUser(t, "Ravi", "ravi@example.com", "password1")
	ctx := context.Background()

	var auth model.AuthResponse
	if err := tiffin.NewClient(backend.URL, staticToken("")).Login(ctx, "ravi@example.com", "password1").Decode(&auth); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if auth.User == nil || auth.User.ID != id {
		t.Fatalf("login user = %+v, want id %s", auth.User, id)
	}
	client := tiffin.NewClient(backend.URL, staticToken(auth.AccessToken))

	const delay = 200 * time.Millisecond
	backend.SetDelay(delay)

	posted := make(chanPoster, 2)
	d := NewDispatcher(4, posted, quietLogger())

	start := time.Now()
	a := d.Dispatch(ctx, "stats-a", func(ctx context.Context) tiffin.Result { return client.GetDashboardStats(ctx) })
	b := d.Dispatch(ctx, "stats-b", func(ctx context.Context) tiffin.Result { return client.GetDashboardStats(ctx) })

	seen := map[Ticket]bool{}
	for i := 0; i < 2; i++ {
		c := receive(t, posted)
		if !c.Result.OK() {
			t.Fatalf("%s failed: %v", c.Key, c.Result.Err())
		}
		var stats model.DashboardStats
		if err := c.Result.Decode(&stats); err != nil {
			t.Fatalf("decode stats: %v", err)
		}
		if stats.TotalUsers != 1 {
			t.Errorf("TotalUsers = %d, want 1", stats.TotalUsers)
		}
		seen[c.Ticket] = true
	}
	if !seen[a] || !seen[b] {
		t.Errorf("completions = %v, want both %v and %v", seen, a, b)
	}
	if elapsed := time.Since(start); elapsed >= 2*delay {
		t.Errorf("two requests took %v, want them to overlap (< %v)", elapsed, 2*delay)
	}
	d.Wait()
}

func TestDispatcher_StaleCompletionIsNotCurrent(t *testing.T) {
	posted := make(chanPoster, 2)
	d := NewDispatcher(2, posted, quietLogger())

	slow := make(chan struct{})
	first := d.Dispatch(context.Background(), "schedule", func(ctx context.Context) tiffin.Result {
		<-slow
		return tiffin.Failed(tiffin.KindDomain, "old")
	})
	second := d.Dispatch(context.Background(), "schedule", func(ctx context.Context) tiffin.Result {
		return tiffin.Result{Kind: tiffin.KindOK}
	})
	if second.Gen != first.Gen+1 {
		t.Fatalf("generations = %d, %d", first.Gen, second.Gen)
	}

	c := receive(t, posted)
	if c.Ticket != second || !d.IsCurrent(c) {
		t.Errorf("first completion = %+v, current = %v", c.Ticket, d.IsCurrent(c))
	}

	close(slow)
	c = receive(t, posted)
	if c.Ticket != first {
		t.Fatalf("second completion = %+v, want %+v", c.Ticket, first)
	}
	if d.IsCurrent(c) {
		t.Error("IsCurrent() = true for superseded request, want false")
	}
	d.Wait()
}

func TestDispatcher_KeysHaveIndependentGenerations(t *testing.T) {
	d := NewDispatcher(2, PosterFunc(func(Completion) {}), quietLogger())
	noop := func(context.Context) tiffin.Result { return tiffin.Result{} }

	a := d.Dispatch(context.Background(), "a", noop)
	b := d.Dispatch(context.Background(), "b", noop)
	d.Wait()

	if !d.IsCurrent(Completion{Ticket: a}) || !d.IsCurrent(Completion{Ticket: b}) {
		t.Errorf("IsCurrent() = false for the only request of its key")
	}
}

func TestDispatcher_BoundsInFlight(t *testing.T) {
	const limit = 2
	posted := make(chanPoster, 6)
	d := NewDispatcher(limit, posted, quietLogger())

	var running, peak atomic.Int64
	release := make(chan struct{})
	for i := 0; i < 6; i++ {
		d.Dispatch(context.Background(), "deliveries", func(ctx context.Context) tiffin.Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return tiffin.Result{}
		})
	}

	deadline := time.Now().Add(time.Second)
	for d.InFlight() < limit && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := d.InFlight(); got != limit {
		t.Errorf("InFlight() = %d, want %d", got, limit)
	}

	close(release)
	d.Wait()
	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency = %d, want <= %d", got, limit)
	}
	if len(posted) != 6 {
		t.Errorf("posted %d completions, want 6", len(posted))
	}
}

func TestDispatcher_CancelledBeforeSlotIsTransportFailure(t *testing.T) {
	posted := make(chanPoster, 2)
	d := NewDispatcher(1, posted, quietLogger())

	hold, started := make(chan struct{}), make(chan struct{})
	d.Dispatch(context.Background(), "hold", func(ctx context.Context) tiffin.Result {
		close(started)
		<-hold
		return tiffin.Result{}
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	waiting := d.Dispatch(ctx, "waiting", func(ctx context.Context) tiffin.Result {
		ran.Store(true)
		return tiffin.Result{}
	})
	cancel()

	c := receive(t, posted)
	if c.Ticket != waiting {
		t.Fatalf("completion = %+v, want %+v", c.Ticket, waiting)
	}
	if c.Result.Kind != tiffin.KindTransport {
		t.Errorf("Kind = %v, want %v", c.Result.Kind, tiffin.KindTransport)
	}
	if ran.Load() {
		t.Error("op ran after its context was cancelled")
	}

	close(hold)
	receive(t, posted)
	d.Wait()
}

func TestDispatcher_PanicBecomesFailure(t *testing.T) {
	posted := make(chanPoster, 1)
	d := NewDispatcher(1, posted, quietLogger())

	d.Dispatch(context.Background(), "boom", func(ctx context.Context) tiffin.Result {
		panic("nil schedule")
	})

	c := receive(t, posted)
	if c.Result.OK() {
		t.Fatal("panicking op reported success")
	}
	if c.Result.Message() != "internal error: nil schedule" {
		t.Errorf("Message() = %q", c.Result.Message())
	}
	if d.InFlight() != 0 {
		t.Errorf("InFlight() = %d after panic, want 0", d.InFlight())
	}
}

func TestDispatcher_SetPosterAfterConstruction(t *testing.T) {
	d := NewDispatcher(0, nil, quietLogger())

	posted := make(chanPoster, 1)
	d.SetPoster(posted)
	ticket := d.Dispatch(context.Background(), "late", func(context.Context) tiffin.Result { return tiffin.Result{} })

	if c := receive(t, posted); c.Ticket != ticket {
		t.Errorf("completion = %+v, want %+v", c.Ticket, ticket)
	}
}
