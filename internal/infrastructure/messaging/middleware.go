package messaging

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// Middleware decorates an event handler.
type Middleware func(shared.EventHandler) shared.EventHandler

// chain wraps h so that mws[0] runs first.
func chain(h shared.EventHandler, mws []Middleware) shared.EventHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func eventAttrs(e shared.Event) []any {
	return []any{"event_type", e.EventType(), "aggregate_id", e.AggregateID()}
}

// RecoveryMiddleware reports a handler panic as an error so one broken
// handler cannot take the publisher down.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.Error("event handler panicked",
					append(eventAttrs(event), "panic", r, "stack", string(debug.Stack()))...)
				err = fmt.Errorf("handler panic: %v", r)
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware records each handler run: failures at Error, the rest
// at Debug.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			started := time.Now()
			err := next(event)
			attrs := append(eventAttrs(event), "took", time.Since(started))
			if err != nil {
				logger.Error("event handler failed", append(attrs, "error", err)...)
				return err
			}
			logger.Debug("event handled", attrs...)
			return nil
		}
	}
}
