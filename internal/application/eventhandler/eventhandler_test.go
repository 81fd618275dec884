package eventhandler

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/infrastructure/persistence/memory"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestAuditLog_WritesEventFields(t *testing.T) {
	logger, buf := bufferLogger()
	h := NewAuditLogHandler(logger, nil)

	e := shared.NewApplicationEvent(shared.EventApplicationSubmitted, "a1", "U1", "i1", "PENDING", "U1")
	require.NoError(t, h.Handle(e))

	out := buf.String()
	assert.Contains(t, out, "event.event_type=application.submitted")
	assert.Contains(t, out, "event.aggregate_id=a1")
	assert.Contains(t, out, "event.student_id=U1")
	assert.Contains(t, out, "handler=audit_log")
	assert.NotContains(t, out, "correlation_id")

	e.BaseEvent = e.WithCorrelationID("req-7")
	require.NoError(t, h.Handle(e))
	assert.Contains(t, buf.String(), "event.correlation_id=req-7")
}

func TestAuditLog_RespectsToggle(t *testing.T) {
	logger, buf := bufferLogger()
	on := false
	h := NewAuditLogHandler(logger, func() bool { return on })

	e := shared.NewRepresentativeEvent(shared.EventRepresentativeRegistered, "rae@acme.com", "rae@acme.com", "Acme", false)
	require.NoError(t, h.Handle(e))
	assert.Empty(t, buf.String())

	on = true
	require.NoError(t, h.Handle(e))
	assert.Contains(t, buf.String(), "representative.registered")
}

func TestInternshipFilled_ListsWaitingApplications(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []string{"a1", "a2"} {
		a, err := application.New(id, "U-"+id, "i1")
		require.NoError(t, err)
		require.NoError(t, store.Applications.Save(ctx, a))
	}
	done, err := application.New("a3", "U-a3", "i1")
	require.NoError(t, err)
	require.NoError(t, done.Reject())
	require.NoError(t, store.Applications.Save(ctx, done))

	logger, buf := bufferLogger()
	h := NewInternshipFilledHandler(store.Applications, logger)

	e := shared.NewInternshipEvent(shared.EventInternshipFilled, "i1", "Backend", "Acme", "rep@acme.com", "FILLED", 2, 2)
	require.NoError(t, h.Handle(e))

	out := buf.String()
	assert.Contains(t, out, "internship filled")
	assert.Contains(t, out, "pending_applications=2")
	assert.Contains(t, out, "a1")
	assert.NotContains(t, out, "a3")
}

func TestInternshipFilled_IgnoresOtherEvents(t *testing.T) {
	logger, buf := bufferLogger()
	h := NewInternshipFilledHandler(memory.NewStore().Applications, logger)

	e := shared.NewApplicationEvent(shared.EventApplicationAccepted, "a1", "U1", "i1", "SUCCESSFUL", "U1")
	require.NoError(t, h.Handle(e))
	assert.Contains(t, buf.String(), "received non-InternshipEvent")
}
