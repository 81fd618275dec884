package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/circuitbreaker"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func syncBus(mws ...Middleware) *LocalBus {
	return NewLocalBus(LocalConfig{
		Logger:      quietLogger(),
		Middlewares: mws,
	})
}

func submitted(id string) shared.ApplicationEvent {
	return shared.NewApplicationEvent(shared.EventApplicationSubmitted, id, "U1", "i1", "PENDING", "U1")
}

// ─────────────────────────────────────────────────────────────────────────────
// Local bus
// ─────────────────────────────────────────────────────────────────────────────

func TestLocalBus_RoutesByType(t *testing.T) {
	bus := syncBus()

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(submitted("a1")))
	require.NoError(t, bus.Publish(shared.NewApplicationEvent(shared.EventApplicationApproved, "a1", "U1", "i1", "SUCCESSFUL", "rep")))

	assert.Equal(t, []shared.EventType{shared.EventApplicationSubmitted}, typed)
	assert.Equal(t, []shared.EventType{shared.EventApplicationSubmitted, shared.EventApplicationApproved}, all)

	assert.Equal(t, Stats{Published: 2, Delivered: 3}, bus.Stats())
}

func TestLocalBus_CountersReachRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := NewLocalBus(LocalConfig{Logger: quietLogger(), Registerer: reg})
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		return errors.New("boom")
	}))

	require.NoError(t, bus.Publish(submitted("a1")))
	require.NoError(t, bus.Publish(submitted("a2")))
	bus.Wait()

	families, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		got[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"placement_events_published_total": 2,
		"placement_events_delivered_total": 0,
		"placement_events_failed_total":    2,
	}, got)

	// A second bus on the same registry keeps its own counts.
	other := NewLocalBus(LocalConfig{Logger: quietLogger(), Registerer: reg})
	require.NoError(t, other.Publish(submitted("a3")))
	assert.Equal(t, int64(1), other.Stats().Published)
}

func TestLocalBus_HandlerErrorDoesNotReachPublisher(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))

	assert.NoError(t, bus.Publish(submitted("a1")))
	assert.Equal(t, int64(1), bus.Stats().Failed)
}

func TestLocalBus_RecoveryMiddleware(t *testing.T) {
	bus := syncBus(RecoveryMiddleware(quietLogger()))

	after := false
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("handler bug") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		after = true
		return nil
	}))

	assert.NoError(t, bus.Publish(submitted("a1")))
	assert.True(t, after)
	assert.Equal(t, int64(1), bus.Stats().Failed)
}

func TestLocalBus_AsyncWait(t *testing.T) {
	bus := NewLocalBus(LocalConfig{Async: true, Workers: 2, Logger: quietLogger()})

	var mu sync.Mutex
	seen := map[string]bool{}
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen[e.AggregateID()] = true
		return nil
	}))

	for _, id := range []string{"a1", "a2", "a3", "a4"} {
		require.NoError(t, bus.Publish(submitted(id)))
	}
	bus.Wait()

	mu.Lock()
	assert.Len(t, seen, 4)
	mu.Unlock()
	assert.Equal(t, int64(4), bus.Stats().Delivered)
}

func TestLocalBus_Closed(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(submitted("a1")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestLocalBus_NilArguments(t *testing.T) {
	bus := syncBus()
	assert.ErrorIs(t, bus.Subscribe(shared.EventApplicationSubmitted, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis fan-out
// ─────────────────────────────────────────────────────────────────────────────

type fakeRedis struct {
	mu         sync.Mutex
	published  []string
	publishErr error
	messages   chan RedisMessage
	closed     bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{messages: make(chan RedisMessage, 8)}
}

func (f *fakeRedis) Publish(_ context.Context, _ string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, message.(string))
	return nil
}

func (f *fakeRedis) Subscribe(context.Context, ...string) (<-chan RedisMessage, error) {
	return f.messages, nil
}

func (f *fakeRedis) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newFanout(t *testing.T, client *fakeRedis) *FanoutBus {
	t.Helper()
	bus, err := NewFanoutBus(FanoutConfig{
		Client:     client,
		InstanceID: "self",
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestFanoutBus_PublishesEnvelopeAndDeliversLocally(t *testing.T) {
	client := newFakeRedis()
	bus := newFanout(t, client)

	var local []string
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		local = append(local, e.AggregateID())
		return nil
	}))

	e := submitted("a1")
	e.BaseEvent = e.WithCorrelationID("req-1")
	require.NoError(t, bus.Publish(e))

	assert.Equal(t, []string{"a1"}, local)
	require.Len(t, client.published, 1)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(client.published[0]), &env))
	assert.Equal(t, "self", env.InstanceID)
	assert.Equal(t, shared.EventApplicationSubmitted, env.EventType)
	assert.Equal(t, "a1", env.AggregateID)
	assert.Equal(t, "i1", env.Payload["internship_id"])
	assert.Equal(t, "req-1", env.CorrelationID)
}

func TestFanoutBus_RedisFailureStillDeliversLocally(t *testing.T) {
	client := newFakeRedis()
	client.publishErr = errors.New("connection refused")
	bus := newFanout(t, client)

	delivered := false
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		delivered = true
		return nil
	}))

	assert.NoError(t, bus.Publish(submitted("a1")))
	assert.True(t, delivered)
}

func TestFanoutBus_BreakerStopsCallingRedis(t *testing.T) {
	client := newFakeRedis()
	client.publishErr = errors.New("connection refused")
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))

	bus, err := NewFanoutBus(FanoutConfig{Client: client, Breaker: breaker, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	delivered := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		delivered++
		return nil
	}))

	for i := 0; i < 4; i++ {
		require.NoError(t, bus.Publish(submitted("a1")))
	}

	assert.Equal(t, 4, delivered)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}

func TestFanoutBus_ReplaysRemoteEventsOnly(t *testing.T) {
	client := newFakeRedis()
	bus := newFanout(t, client)

	got := make(chan shared.Event, 4)
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got <- e
		return nil
	}))

	envelope := func(instance, id string) string {
		data, err := json.Marshal(envelope{
			InstanceID:  instance,
			EventType:   shared.EventApplicationWithdrawn,
			AggregateID: id,
			OccurredAt:  time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC),
			Payload:     map[string]interface{}{"status": "WITHDRAWN"},
		})
		require.NoError(t, err)
		return string(data)
	}

	client.messages <- RedisMessage{Payload: envelope("self", "mine")}
	client.messages <- RedisMessage{Payload: "not json"}
	client.messages <- RedisMessage{Payload: envelope("other", "theirs")}

	select {
	case e := <-got:
		assert.Equal(t, "theirs", e.AggregateID())
		assert.Equal(t, shared.EventApplicationWithdrawn, e.EventType())
		assert.Equal(t, "WITHDRAWN", e.Payload()["status"])
	case <-time.After(2 * time.Second):
		t.Fatal("remote event was not delivered")
	}
	assert.Empty(t, got)
}

func TestFanoutBus_CloseClosesClient(t *testing.T) {
	client := newFakeRedis()
	bus, err := NewFanoutBus(FanoutConfig{Client: client, Logger: quietLogger()})
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	assert.True(t, client.closed)
	assert.ErrorIs(t, bus.Publish(submitted("a1")), ErrEventBusClosed)
}

func TestNewFanoutBus_RequiresClient(t *testing.T) {
	_, err := NewFanoutBus(FanoutConfig{})
	assert.Error(t, err)
}
