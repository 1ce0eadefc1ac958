package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/procmon/internal/model"
	"github.com/Dicklesworthstone/procmon/internal/table"
)

// RenderFunc displays one finished view.
type RenderFunc func(view table.View) error

// Collector produces one snapshot per call.
type Collector interface {
	Collect(ctx context.Context) (model.Snapshot, error)
}

// Engine drives collect -> build -> render cycles. Cycles never overlap: a
// slow render simply delays the next cycle.
type Engine struct {
	logger    *zap.Logger
	collector Collector
	options   table.Options
	running   *atomic.Bool
	cycles    *atomic.Int64

	lock sync.Mutex
	stop context.CancelFunc
}

func NewEngine(rootLogger *zap.Logger, collector Collector, options table.Options) *Engine {
	return &Engine{
		logger:    rootLogger.Named("engine"),
		collector: collector,
		options:   options,
		running:   atomic.NewBool(false),
		cycles:    atomic.NewInt64(0),
	}
}

// Run executes one cycle, then, if repeat is set, one more cycle every
// interval until ctx is cancelled or Stop is called. Cancellation is checked
// before sleeping and before each collection, never in the middle of a
// cycle. A requested stop is not an error.
func (e *Engine) Run(ctx context.Context, interval time.Duration, repeat bool, render RenderFunc) error {
	if err := e.options.Validate(); err != nil {
		return errors.WithMessage(err, "invalid table options")
	}
	if repeat && interval <= 0 {
		return errors.Errorf("refresh interval must be positive, got '%s'", interval)
	}

	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine is already running")
	}
	defer e.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.lock.Lock()
	e.stop = cancel
	e.lock.Unlock()

	if err := e.cycle(ctx, render); err != nil {
		if !repeat || !isCollectError(err) {
			return err
		}
		e.logger.Error("Cycle failed, retrying on next tick", zap.Error(err))
	}

	if !repeat {
		return nil
	}

	for sleep(ctx, interval) && ctx.Err() == nil {
		if err := e.cycle(ctx, render); err != nil {
			if !isCollectError(err) {
				return err
			}
			e.logger.Error("Cycle failed, retrying on next tick", zap.Error(err))
		}
	}

	e.logger.Debug("Stop refresh loop", zap.Int64("Cycles", e.cycles.Load()))
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stop asks a running loop to return at its next cycle boundary.
func (e *Engine) Stop() {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.stop != nil {
		e.stop()
	}
}

func (e *Engine) Running() bool {
	return e.running.Load()
}

// Cycles counts the cycles rendered so far.
func (e *Engine) Cycles() int64 {
	return e.cycles.Load()
}

type collectError struct{ error }

func (c collectError) Unwrap() error { return c.error }

func isCollectError(err error) bool {
	var ce collectError
	return errors.As(err, &ce)
}

func (e *Engine) cycle(ctx context.Context, render RenderFunc) error {
	started := time.Now()

	snap, err := e.collector.Collect(ctx)
	if err != nil {
		return collectError{errors.WithMessage(err, "collect snapshot")}
	}

	view, err := table.Build(snap, e.options)
	if err != nil {
		return errors.WithMessage(err, "build table")
	}

	if err := render(view); err != nil {
		return errors.WithMessage(err, "render table")
	}

	cycle := e.cycles.Inc()
	e.logger.Debug("Cycle done", zap.Int64("Cycle", cycle), zap.Int("Rows", len(view.Rows)),
		zap.Int("Total", view.Total), zap.Duration("Took", time.Since(started)))
	return nil
}
