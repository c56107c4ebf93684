// Package lifecycle stops a service's components in a fixed order on shutdown.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Stage groups components that stop together. Lower stages stop first.
type Stage int

const (
	// StageIngress holds what accepts work: HTTP servers and queue consumers.
	StageIngress Stage = iota
	// StageFlush holds what still moves buffered work out, like the outbox relay.
	StageFlush
	// StageRelease holds connections and files the earlier stages used.
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageIngress:
		return "ingress"
	case StageFlush:
		return "flush"
	case StageRelease:
		return "release"
	default:
		return "custom"
	}
}

// StopFunc stops one component. It must return once ctx ends.
type StopFunc func(ctx context.Context) error

type component struct {
	stage Stage
	name  string
	seq   int
	stop  StopFunc
}

// Manager stops registered components stage by stage. Within a stage the last
// registered component stops first, so a handle opened before its users outlives them.
type Manager struct {
	timeout time.Duration
	log     *zap.Logger

	mu         sync.Mutex
	components []component
	seq        int
}

// New creates a Manager. timeout bounds the whole shutdown.
func New(timeout time.Duration, log *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{timeout: timeout, log: log}
}

// Register adds a component to stop in the given stage.
func (m *Manager) Register(stage Stage, name string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.components = append(m.components, component{stage: stage, name: name, seq: m.seq, stop: stop})
}

// RegisterCloser adds a component stopped by a plain Close, such as (*sql.DB).Close.
func (m *Manager) RegisterCloser(stage Stage, name string, closeFn func() error) {
	if closeFn == nil {
		return
	}
	m.Register(stage, name, func(context.Context) error { return closeFn() })
}

// Shutdown stops every component once. A failure is logged and the remaining
// components still stop; all failures are joined into the result.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	components := m.components
	m.components = nil
	m.mu.Unlock()

	sort.SliceStable(components, func(i, j int) bool {
		if components[i].stage != components[j].stage {
			return components[i].stage < components[j].stage
		}
		return components[i].seq > components[j].seq
	})

	var result error
	for _, c := range components {
		log := m.log.With(zap.String("component", c.name), zap.Stringer("stage", c.stage))
		start := time.Now()
		if err := c.stop(ctx); err != nil {
			log.Error("component failed to stop", zap.Duration("took", time.Since(start)), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		log.Info("component stopped", zap.Duration("took", time.Since(start)))
	}
	return result
}

// Wait blocks until SIGINT or SIGTERM arrives or ctx ends, and returns the signal
// received, or nil when ctx ended first.
func (m *Manager) Wait(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.log.Info("shutdown signal received", zap.String("signal", sig.String()))
		return sig
	case <-ctx.Done():
		return nil
	}
}
