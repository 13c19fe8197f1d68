package shutdown

import (
	"context"
	"sync"
)

// Guard is a scoped shutdown-prevention condition. While a guard is held
// (between Acquire and Release, or for the duration of Do/Wrap), the
// coordinator reports the process as not ready to shut down.
//
// A typical background job:
//
//	g := shutdown.NewGuard(coord, "refreshing user info")
//	defer g.Close()
//	for {
//		g.Do(func() {
//			refresh()
//		})
//		g.AllowShutdown(func() {
//			select {
//			case <-ctx.Done():
//			case <-time.After(2 * time.Minute):
//			}
//		})
//	}
//
// Guards are not reentrant: a single guard tracks one blocking flag, not a
// hold count. Use separate guards for independent units of work.
type Guard struct {
	reason string

	mu       sync.Mutex
	blocking bool

	unregister func()
	closed     bool
}

// NewGuard creates a guard and registers it with the coordinator. The guard
// starts released (not blocking). Close must be called when the guard's
// owning scope ends, otherwise the condition outlives its scope.
func NewGuard(c *Coordinator, reason string) *Guard {
	g := &Guard{reason: reason}
	g.unregister = c.Register(NewCondition(
		"preventing shutdown: "+reason,
		func() bool { return !g.isBlocking() },
	))
	return g
}

// Reason returns the guard's diagnostic reason.
func (g *Guard) Reason() string { return g.reason }

func (g *Guard) isBlocking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blocking
}

// Acquire marks the guard as blocking shutdown.
func (g *Guard) Acquire() {
	g.mu.Lock()
	g.blocking = true
	g.mu.Unlock()
}

// Release marks the guard as no longer blocking shutdown.
func (g *Guard) Release() {
	g.mu.Lock()
	g.blocking = false
	g.mu.Unlock()
}

// Close releases the guard and removes its condition from the coordinator.
// Safe to call multiple times.
func (g *Guard) Close() {
	g.mu.Lock()
	g.blocking = false
	alreadyClosed := g.closed
	g.closed = true
	g.mu.Unlock()

	if !alreadyClosed && g.unregister != nil {
		g.unregister()
	}
}

// Do runs fn with the guard held, releasing it when fn returns (also on
// panic).
func (g *Guard) Do(fn func()) {
	g.Acquire()
	defer g.Release()
	fn()
}

// Wrap returns a job that holds the guard for its entire execution.
func (g *Guard) Wrap(job func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		g.Acquire()
		defer g.Release()
		return job(ctx)
	}
}

// AllowShutdown temporarily stops blocking shutdown for the duration of fn
// and restores the previous blocking state afterwards. Nesting is supported:
// each scope restores exactly the state it observed on entry.
func (g *Guard) AllowShutdown(fn func()) {
	g.mu.Lock()
	prior := g.blocking
	g.blocking = false
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.blocking = prior
		g.mu.Unlock()
	}()

	fn()
}

// Prevent runs fn under a temporary guard that exists only for the call,
// covering the common "guard one unit of work" shape.
func Prevent(c *Coordinator, reason string, fn func()) {
	g := NewGuard(c, reason)
	defer g.Close()
	g.Do(fn)
}
