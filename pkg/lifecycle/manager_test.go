package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestShutdownStopsStagesInOrder(t *testing.T) {
	m := New(time.Second, nil)

	var order []string
	record := func(name string) StopFunc {
		return func(context.Context) error { order = append(order, name); return nil }
	}
	// Registered in the order main builds them.
	m.RegisterCloser(StageRelease, "postgres", func() error { order = append(order, "postgres"); return nil })
	m.Register(StageRelease, "rabbitmq", record("rabbitmq"))
	m.Register(StageFlush, "outbox-relay", record("outbox-relay"))
	m.Register(StageIngress, "consumer", record("consumer"))
	m.Register(StageIngress, "http", record("http"))

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"http", "consumer", "outbox-relay", "rabbitmq", "postgres"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestShutdownJoinsErrorsAndContinues(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := New(time.Second, zap.New(core))
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	ran := 0
	m.Register(StageIngress, "a", func(context.Context) error { ran++; return errA })
	m.Register(StageRelease, "b", func(context.Context) error { ran++; return errB })

	err := m.Shutdown(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors joined, got %v", err)
	}
	if ran != 2 {
		t.Errorf("expected both components to stop, got %d", ran)
	}
	if n := logs.FilterMessage("component failed to stop").Len(); n != 2 {
		t.Errorf("expected 2 failure logs, got %d", n)
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := New(time.Second, nil)
	ran := 0
	m.Register(StageIngress, "http", func(context.Context) error { ran++; return nil })

	_ = m.Shutdown(context.Background())
	_ = m.Shutdown(context.Background())
	if ran != 1 {
		t.Errorf("expected component stopped once, got %d", ran)
	}
}

func TestShutdownAppliesTimeout(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	m.Register(StageFlush, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := m.Shutdown(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWaitReturnsOnContextDone(t *testing.T) {
	m := New(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		if sig := m.Wait(ctx); sig != nil {
			t.Errorf("expected no signal, got %v", sig)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
}
