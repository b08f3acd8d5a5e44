package eventloop

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"screen-guide/internal/application/port/output"
)

var _ output.Scheduler = (*Loop)(nil)

var ErrStopped = errors.New("event loop stopped")

// Loop runs callbacks one at a time on a single goroutine. State owned by
// loop callbacks needs no locking.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger output.LoggerPort
}

func New(logger output.LoggerPort, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		queue:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger.WithField("component", "eventloop"),
	}
}

// Run processes callbacks until ctx is done. Background work started with
// Go is waited for before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.once.Do(func() { close(l.done) })
		l.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			l.invoke(fn)
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Panic in loop callback",
				"error", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) output.Timer {
	return time.AfterFunc(d, func() {
		if err := l.Post(fn); err != nil {
			l.logger.Debug("Dropped timer callback", "error", err)
		}
	})
}

// Go runs work on its own goroutine and posts the continuation it returns.
func (l *Loop) Go(work func() func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("Panic in background work",
					"error", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if cont := work(); cont != nil {
			if err := l.Post(cont); err != nil {
				l.logger.Debug("Dropped background result", "error", err)
			}
		}
	}()
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}
