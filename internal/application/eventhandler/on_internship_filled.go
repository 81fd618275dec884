package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON INTERNSHIP FILLED HANDLER
// Reports a posting that just used its last slot, together with the
// applications still waiting on it. Those can no longer be approved.
// ═══════════════════════════════════════════════════════════════════════════

// InternshipFilledHandler reacts to internship.filled.
type InternshipFilledHandler struct {
	applications application.Repository
	logger       *slog.Logger
	timeout      time.Duration
}

// NewInternshipFilledHandler creates a new InternshipFilledHandler.
func NewInternshipFilledHandler(applications application.Repository, logger *slog.Logger) *InternshipFilledHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternshipFilledHandler{
		applications: applications,
		logger:       logger.With("handler", "on_internship_filled"),
		timeout:      5 * time.Second,
	}
}

// Subscribe registers the handler for internship.filled.
func (h *InternshipFilledHandler) Subscribe(sub shared.EventSubscriber) error {
	return sub.Subscribe(shared.EventInternshipFilled, h.Handle)
}

// Handle implements shared.EventHandler.
func (h *InternshipFilledHandler) Handle(event shared.Event) error {
	filled, ok := event.(shared.InternshipEvent)
	if !ok {
		h.logger.Warn("received non-InternshipEvent", "event_type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	apps, err := h.applications.FindByInternship(ctx, filled.AggregateID())
	if err != nil {
		return shared.WrapError("eventhandler", "OnInternshipFilled", shared.ErrNotFound,
			"failed to load applications", err)
	}

	var waiting []string
	for _, a := range apps {
		if a.Status == application.StatusPending {
			waiting = append(waiting, a.ID)
		}
	}

	h.logger.Info("internship filled",
		"internship_id", filled.AggregateID(),
		"title", filled.Title,
		"company", filled.CompanyName,
		"representative_id", filled.RepresentativeID,
		"slots", filled.MaxSlots,
		"pending_applications", len(waiting),
	)
	if len(waiting) > 0 {
		h.logger.Warn("pending applications on a filled internship",
			"internship_id", filled.AggregateID(),
			"application_ids", waiting,
		)
	}
	return nil
}
