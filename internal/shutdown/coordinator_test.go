package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStateString(t *testing.T) {
	t.Parallel()
	if StateRunning.String() != "running" ||
		StateShuttingDown.String() != "shutting_down" ||
		StateTerminated.String() != "terminated" {
		t.Error("unexpected state names")
	}
}

func TestRunTerminatesWhenNoConditions(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{PollInterval: 5 * time.Millisecond})

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	c.Shutdown()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not terminate")
	}
	if c.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", c.State())
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done() channel not closed after termination")
	}
}

func TestRunWaitsForGuard(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{PollInterval: 5 * time.Millisecond})
	g := NewGuard(c, "in-flight work")
	defer g.Close()
	g.Acquire()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()
	c.Shutdown()

	select {
	case err := <-errCh:
		t.Fatalf("Run() returned %v while a guard was held", err)
	case <-time.After(50 * time.Millisecond):
	}
	if c.State() != StateShuttingDown {
		t.Fatalf("State() = %v, want shutting_down", c.State())
	}

	g.Release()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not terminate after guard release")
	}
}

func TestRepeatedShutdownIsIdempotent(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{PollInterval: 5 * time.Millisecond})
	g := NewGuard(c, "still busy")
	defer g.Close()
	g.Acquire()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	c.Shutdown()
	// Let the first request be consumed, then repeat it.
	time.Sleep(20 * time.Millisecond)
	c.Shutdown()
	c.Shutdown()

	time.Sleep(20 * time.Millisecond)
	if c.State() != StateShuttingDown {
		t.Fatalf("State() = %v after repeated signals, want shutting_down", c.State())
	}

	g.Release()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not terminate")
	}
}

func TestRunTwiceIsFatal(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Run(ctx)
	}()

	// Give the first Run a chance to claim the loop.
	time.Sleep(10 * time.Millisecond)
	if err := c.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	wg.Wait()
}

func TestRunContextCancellation(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestForceExitAfterGracePeriod(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{
		PollInterval:   5 * time.Millisecond,
		ForceExitAfter: 30 * time.Millisecond,
	})
	g := NewGuard(c, "stuck handler")
	defer g.Close()
	g.Acquire() // never released

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()
	c.Shutdown()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrForced) {
			t.Errorf("Run() error = %v, want ErrForced", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not force exit after grace period")
	}
	if c.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", c.State())
	}
}

func TestConditionRegistryConcurrentMutation(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(Config{PollInterval: time.Millisecond})

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				c.firstBlockingCondition()
			}
		}
	}()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				unregister := c.Register(NewCondition("transient", func() bool { return true }))
				unregister()
			}
		}()
	}
	wg.Wait()
	close(stop)

	if got := c.ConditionCount(); got != 0 {
		t.Errorf("ConditionCount() = %d, want 0", got)
	}
}
