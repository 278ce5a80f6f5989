package appstate

import (
	"context"
	"errors"
	"sync"

	"questTracker/internal/logger"

	"go.uber.org/zap"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs posted functions one at a time on a single goroutine. Everything
// that touches State goes through it.
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

func NewLoop(buffer int) *Loop {
	return &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	logger.Debug("Loop: Started")
	defer logger.Debug("Loop: Stopped")
	defer l.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case fn := <-l.events:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Loop: Event panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Post enqueues fn and returns at once. It reports false when the loop has
// stopped and fn will never run.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from inside a loop event.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.events <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// fn may have completed just before the loop stopped
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}
