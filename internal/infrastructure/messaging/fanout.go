package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS FAN-OUT
// ══════════════════════════════════════════════════════════════════════════════

// DefaultEventChannel is the Redis channel used when none is configured.
const DefaultEventChannel = "placement-hub:events"

// RedisClient is the pub/sub surface FanoutBus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one pub/sub delivery, or a subscription error.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// FanoutConfig configures a FanoutBus.
type FanoutConfig struct {
	Client RedisClient
	// Channel defaults to DefaultEventChannel.
	Channel string
	// InstanceID tells our own echoes apart; generated when empty.
	InstanceID string
	Local      LocalConfig
	// Breaker skips Redis while it keeps failing. Optional.
	Breaker *circuitbreaker.CircuitBreaker
	Logger  *slog.Logger
}

// FanoutBus delivers every event locally and mirrors it to a Redis channel.
// Events other instances mirror are replayed to local handlers. Redis is best
// effort: a failed mirror is logged and local delivery still happens.
type FanoutBus struct {
	*LocalBus

	client   RedisClient
	breaker  *circuitbreaker.CircuitBreaker
	channel  string
	instance string
	logger   *slog.Logger

	ctx  context.Context
	stop context.CancelFunc
	loop sync.WaitGroup
	once sync.Once
}

// NewFanoutBus subscribes to the channel and starts replaying remote events.
func NewFanoutBus(cfg FanoutConfig) (*FanoutBus, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultEventChannel
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Local.Logger == nil {
		cfg.Local.Logger = cfg.Logger
	}

	ctx, stop := context.WithCancel(context.Background())
	b := &FanoutBus{
		LocalBus: NewLocalBus(cfg.Local),
		client:   cfg.Client,
		breaker:  cfg.Breaker,
		channel:  cfg.Channel,
		instance: cfg.InstanceID,
		logger:   cfg.Logger.With("component", "event_fanout", "channel", cfg.Channel),
		ctx:      ctx,
		stop:     stop,
	}

	incoming, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		stop()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	b.loop.Add(1)
	go b.replay(incoming)

	return b, nil
}

// Publish mirrors event to Redis, then delivers it locally.
func (b *FanoutBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}
	if b.ctx.Err() != nil {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(envelopeOf(b.instance, event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	switch err := b.mirror(string(data)); {
	case err == nil:
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		b.logger.Debug("redis publish skipped", "event_type", event.EventType(), "reason", err)
	default:
		b.logger.Error("redis publish failed", "event_type", event.EventType(), "error", err)
	}

	return b.LocalBus.Publish(event)
}

func (b *FanoutBus) mirror(data string) error {
	send := func(ctx context.Context) error {
		return b.client.Publish(ctx, b.channel, data)
	}
	if b.breaker == nil {
		return send(b.ctx)
	}
	return b.breaker.Execute(b.ctx, send)
}

func (b *FanoutBus) replay(incoming <-chan RedisMessage) {
	defer b.loop.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}
			b.deliverRemote(msg.Payload)
		}
	}
}

func (b *FanoutBus) deliverRemote(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Error("undecodable event on channel", "error", err)
		return
	}
	// Our own events were delivered locally at publish time.
	if env.InstanceID == b.instance {
		return
	}
	if err := b.LocalBus.Publish(env.event()); err != nil {
		b.logger.Error("failed to deliver remote event", "event_type", env.EventType, "error", err)
	}
}

// Close stops the replay loop, then closes the client and the local bus.
func (b *FanoutBus) Close() error {
	b.once.Do(func() {
		b.stop()
		b.loop.Wait()
		if err := b.client.Close(); err != nil {
			b.logger.Error("failed to close redis client", "error", err)
		}
		_ = b.LocalBus.Close()
	})
	return nil
}

// Local exposes the in-process bus.
func (b *FanoutBus) Local() *LocalBus {
	return b.LocalBus
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire format
// ─────────────────────────────────────────────────────────────────────────────

type envelope struct {
	InstanceID    string                 `json:"instance_id"`
	EventType     shared.EventType       `json:"event_type"`
	AggregateID   string                 `json:"aggregate_id"`
	OccurredAt    time.Time              `json:"occurred_at"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

func envelopeOf(instance string, e shared.Event) envelope {
	env := envelope{
		InstanceID:  instance,
		EventType:   e.EventType(),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt(),
		Payload:     e.Payload(),
	}
	if c, ok := e.(shared.Correlated); ok {
		env.CorrelationID = c.Correlation()
	}
	return env
}

func (env envelope) event() shared.Event {
	return &remoteEvent{env: env}
}

// remoteEvent is an event decoded from another instance.
type remoteEvent struct {
	env envelope
}

func (e *remoteEvent) EventType() shared.EventType     { return e.env.EventType }
func (e *remoteEvent) AggregateID() string             { return e.env.AggregateID }
func (e *remoteEvent) OccurredAt() time.Time           { return e.env.OccurredAt }
func (e *remoteEvent) Payload() map[string]interface{} { return e.env.Payload }
func (e *remoteEvent) Correlation() string             { return e.env.CorrelationID }
