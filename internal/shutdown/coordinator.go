// Package shutdown coordinates graceful process termination. A Coordinator
// watches termination signals and polls registered readiness conditions;
// the process is only allowed to exit once every live condition reports
// ready. Guards provide scoped "do not shut down now" conditions.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/telehost/telehost/internal/logger"
)

// State is the coordinator's lifecycle state.
type State int32

const (
	// StateRunning means no termination signal has been received yet.
	StateRunning State = iota
	// StateShuttingDown means a signal arrived and conditions are polled.
	StateShuttingDown
	// StateTerminated means all conditions cleared and Run has returned.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrForced is returned by Run when the force-exit grace period elapsed
// while conditions were still blocking.
var ErrForced = errors.New("shutdown forced after grace period")

// ErrAlreadyRunning is returned when Run is called a second time.
// This is a configuration defect in the caller.
var ErrAlreadyRunning = errors.New("shutdown coordinator may be run only once")

// Condition is a named readiness predicate. Ready is consulted by the
// coordinator's polling loop and must be written to never fail: a panicking
// predicate is a programming error and is deliberately not recovered.
type Condition struct {
	description string
	ready       func() bool
}

// NewCondition creates a condition with a human-readable description used in
// shutdown diagnostics.
func NewCondition(description string, ready func() bool) *Condition {
	return &Condition{description: description, ready: ready}
}

// Description returns the condition's diagnostic description.
func (c *Condition) Description() string { return c.description }

// Config configures a Coordinator.
type Config struct {
	// PollInterval is how often conditions are re-checked while shutting
	// down. Defaults to 500ms.
	PollInterval time.Duration

	// ForceExitAfter, when non-zero, bounds how long the coordinator waits
	// for blocking conditions after the first signal. When exceeded, Run
	// logs the blocking conditions and returns ErrForced. Zero means wait
	// indefinitely.
	ForceExitAfter time.Duration

	// Signals overrides the watched signals. Defaults to SIGINT, SIGTERM.
	Signals []os.Signal

	Logger *logger.Logger
}

// Coordinator is the process-wide shutdown state machine. Construct exactly
// one per process and hand it by reference to everything that registers
// conditions or queries state.
type Coordinator struct {
	mu         sync.Mutex
	conditions map[*Condition]struct{}

	state   atomic.Int32
	running atomic.Bool

	pollInterval   time.Duration
	forceExitAfter time.Duration
	watchedSignals []os.Signal
	log            *logger.Logger

	// trigger carries programmatic shutdown requests (tests, admin paths)
	// into the run loop alongside OS signals.
	trigger chan struct{}
	done    chan struct{}
}

// NewCoordinator creates a coordinator in the Running state.
func NewCoordinator(cfg Config) *Coordinator {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	watched := cfg.Signals
	if len(watched) == 0 {
		watched = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	return &Coordinator{
		conditions:     make(map[*Condition]struct{}),
		pollInterval:   pollInterval,
		forceExitAfter: cfg.ForceExitAfter,
		watchedSignals: watched,
		log:            log.WithModule("shutdown"),
		trigger:        make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
}

// Register adds a condition to the coordinator's set and returns its
// deregistration function. The caller must invoke it when the condition's
// owning scope ends; a forgotten live condition blocks shutdown forever
// (unless ForceExitAfter is set).
func (c *Coordinator) Register(cond *Condition) func() {
	c.mu.Lock()
	c.conditions[cond] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.conditions, cond)
			c.mu.Unlock()
		})
	}
}

// ConditionCount returns the number of currently registered conditions.
func (c *Coordinator) ConditionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conditions)
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// IsShuttingDown reports whether a termination signal has been received.
func (c *Coordinator) IsShuttingDown() bool {
	return c.State() != StateRunning
}

// Done returns a channel closed when the coordinator reaches Terminated.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Shutdown requests shutdown programmatically, with the same semantics as
// receiving a termination signal. Repeated calls are idempotent.
func (c *Coordinator) Shutdown() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run watches for termination signals and, once one arrives, polls all
// registered conditions until every one reports ready, then returns nil.
// Run blocks until then; callers stop servers and exit the process after it
// returns. Calling Run twice returns ErrAlreadyRunning. Cancellation of ctx
// aborts the loop with ctx.Err().
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, c.watchedSignals...)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var shutdownStarted time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig := <-sigCh:
			c.noteSignal(sig.String(), &shutdownStarted)

		case <-c.trigger:
			c.noteSignal("programmatic", &shutdownStarted)

		case <-ticker.C:
			if c.State() != StateShuttingDown {
				continue
			}
			blocking := c.firstBlockingCondition()
			if blocking == "" {
				c.state.Store(int32(StateTerminated))
				close(c.done)
				c.log.Info("All shutdown conditions are satisfied, shutting down")
				return nil
			}
			c.log.WithField("condition", blocking).Info("Shutdown condition not satisfied yet, waiting")
			if c.forceExitAfter > 0 && time.Since(shutdownStarted) > c.forceExitAfter {
				c.state.Store(int32(StateTerminated))
				close(c.done)
				c.log.WithField("condition", blocking).
					WithField("grace_period", c.forceExitAfter).
					Error("Forcing shutdown with blocking conditions remaining")
				return ErrForced
			}
		}
	}
}

// noteSignal flips the state on the first signal and ignores repeats.
func (c *Coordinator) noteSignal(name string, startedAt *time.Time) {
	if c.State() == StateRunning {
		c.log.WithField("signal", name).Info("Shutdown signal received, entering shutdown state")
		c.state.Store(int32(StateShuttingDown))
		*startedAt = time.Now()
		return
	}
	c.log.WithField("signal", name).Info("Repeated shutdown signal received, ignoring")
}

// firstBlockingCondition returns the description of the first condition
// that is not ready, or "" when all are ready. Condition predicates are
// evaluated outside the registry lock so a slow predicate cannot block
// guard registration.
func (c *Coordinator) firstBlockingCondition() string {
	c.mu.Lock()
	snapshot := make([]*Condition, 0, len(c.conditions))
	for cond := range c.conditions {
		snapshot = append(snapshot, cond)
	}
	c.mu.Unlock()

	for _, cond := range snapshot {
		if !cond.ready() {
			return cond.description
		}
	}
	return ""
}
