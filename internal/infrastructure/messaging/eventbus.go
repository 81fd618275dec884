// Package messaging delivers placement domain events to in-process handlers
// and, optionally, to other instances over Redis pub/sub.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

var (
	ErrEventBusClosed = errors.New("event bus is closed")
	ErrNilHandler     = errors.New("handler cannot be nil")
	ErrNilEvent       = errors.New("event cannot be nil")
)

// anyEvent keys handlers registered with SubscribeAll.
const anyEvent shared.EventType = ""

// ══════════════════════════════════════════════════════════════════════════════
// LOCAL BUS
// ══════════════════════════════════════════════════════════════════════════════

// LocalConfig configures a LocalBus.
type LocalConfig struct {
	// Async runs handlers on worker goroutines instead of the publisher's.
	Async bool
	// Workers bounds concurrent async handlers.
	Workers int
	// Middlewares wrap every handler at subscribe time, outermost first.
	Middlewares []Middleware

	// Registerer receives the bus counters. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// DefaultLocalConfig runs handlers asynchronously on ten workers.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{Async: true, Workers: 10}
}

// LocalBus fans events out to handlers registered in this process. Handler
// errors are logged and counted but never reach the publisher.
type LocalBus struct {
	cfg    LocalConfig
	logger *slog.Logger
	slots  chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.RWMutex
	handlers map[shared.EventType][]shared.EventHandler
	closed   bool

	published prometheus.Counter
	delivered prometheus.Counter
	failed    prometheus.Counter
}

func eventCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "placement",
		Subsystem: "events",
		Name:      name,
		Help:      help,
	})
}

// NewLocalBus returns an open bus.
func NewLocalBus(cfg LocalConfig) *LocalBus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	b := &LocalBus{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "event_bus"),
		slots:     make(chan struct{}, cfg.Workers),
		done:      make(chan struct{}),
		handlers:  make(map[shared.EventType][]shared.EventHandler),
		published: eventCounter("published_total", "Events accepted by Publish."),
		delivered: eventCounter("delivered_total", "Handler runs that returned nil."),
		failed:    eventCounter("failed_total", "Handler runs that returned an error."),
	}
	if cfg.Registerer != nil {
		for _, c := range []prometheus.Collector{b.published, b.delivered, b.failed} {
			if err := cfg.Registerer.Register(c); err != nil {
				b.logger.Warn("failed to register event bus metric", "error", err)
			}
		}
	}
	return b
}

// Subscribe registers handler for one event type.
func (b *LocalBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.add(eventType, handler)
}

// SubscribeAll registers handler for every event type.
func (b *LocalBus) SubscribeAll(handler shared.EventHandler) error {
	return b.add(anyEvent, handler)
}

func (b *LocalBus) add(key shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[key] = append(b.handlers[key], chain(handler, b.cfg.Middlewares))
	b.logger.Debug("handler subscribed", "event_type", key)
	return nil
}

// Publish delivers event to its type's handlers, then to catch-all handlers.
func (b *LocalBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	targets := append(append([]shared.EventHandler(nil), b.handlers[event.EventType()]...), b.handlers[anyEvent]...)
	if b.cfg.Async {
		// Added under the read lock so Close cannot start waiting first.
		b.wg.Add(len(targets))
	}
	b.mu.RUnlock()

	b.published.Inc()
	for _, h := range targets {
		if b.cfg.Async {
			go b.runQueued(event, h)
		} else {
			b.run(event, h)
		}
	}
	return nil
}

func (b *LocalBus) runQueued(event shared.Event, h shared.EventHandler) {
	defer b.wg.Done()
	select {
	case b.slots <- struct{}{}:
		defer func() { <-b.slots }()
	case <-b.done:
		return
	}
	b.run(event, h)
}

func (b *LocalBus) run(event shared.Event, h shared.EventHandler) {
	if err := h(event); err != nil {
		b.failed.Inc()
		b.logger.Error("event handler failed", "event_type", event.EventType(), "error", err)
		return
	}
	b.delivered.Inc()
}

// Wait blocks until every async handler started so far has returned.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and waits for running handlers. Handlers
// still queued for a worker are dropped.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Debug("event bus closed", "stats", b.Stats())
	return nil
}

// Stats counts publishes and handler outcomes since the bus was created.
type Stats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

func (b *LocalBus) Stats() Stats {
	return Stats{
		Published: counterValue(b.published),
		Delivered: counterValue(b.delivered),
		Failed:    counterValue(b.failed),
	}
}

func counterValue(c prometheus.Counter) int64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return int64(m.GetCounter().GetValue())
}
