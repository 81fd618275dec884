// Package eventhandler contains domain event handlers. They are the reactive
// side of the system: they observe committed changes and run side effects
// such as audit logging and capacity notifications.
package eventhandler

import (
	"log/slog"
	"sort"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT LOG HANDLER
// Writes one structured log record per domain event.
// ═══════════════════════════════════════════════════════════════════════════

// Toggle reports whether a handler is switched on.
type Toggle func() bool

// AuditLogHandler logs every event it receives.
type AuditLogHandler struct {
	logger  *slog.Logger
	enabled Toggle
}

// NewAuditLogHandler creates a new AuditLogHandler. A nil toggle means
// always on.
func NewAuditLogHandler(logger *slog.Logger, enabled Toggle) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &AuditLogHandler{
		logger:  logger.With("handler", "audit_log"),
		enabled: enabled,
	}
}

// Subscribe registers the handler for all events.
func (h *AuditLogHandler) Subscribe(sub shared.EventSubscriber) error {
	return sub.SubscribeAll(h.Handle)
}

// Handle implements shared.EventHandler.
func (h *AuditLogHandler) Handle(event shared.Event) error {
	if !h.enabled() {
		return nil
	}

	payload := event.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, 6+2*len(keys))
	attrs = append(attrs,
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	)
	if c, ok := event.(shared.Correlated); ok && c.Correlation() != "" {
		attrs = append(attrs, "correlation_id", c.Correlation())
	}
	for _, k := range keys {
		attrs = append(attrs, k, payload[k])
	}

	h.logger.Info("audit", slog.Group("event", attrs...))
	return nil
}
