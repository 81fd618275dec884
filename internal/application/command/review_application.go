package command

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW APPLICATION COMMAND
// The owning representative approves or rejects a pending application.
// Approval needs an APPROVED internship with a free slot but does not
// consume the slot; slots are consumed only when the student accepts.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewApplicationCommand contains the representative's verdict.
type ReviewApplicationCommand struct {
	RepresentativeID string   `validate:"required"`
	ApplicationID    string   `validate:"required"`
	Decision         Decision `validate:"required,oneof=approve reject"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ReviewApplicationCommand) Validate() error {
	return validateStruct("ReviewApplication", c)
}

// ReviewApplicationResult contains the reviewed application.
type ReviewApplicationResult struct {
	Application *application.Application
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ReviewApplicationHandler handles the ReviewApplicationCommand.
type ReviewApplicationHandler struct {
	deps Deps
}

// NewReviewApplicationHandler creates a new ReviewApplicationHandler.
func NewReviewApplicationHandler(deps Deps) *ReviewApplicationHandler {
	return &ReviewApplicationHandler{deps: deps.withDefaults()}
}

// Handle executes the review.
func (h *ReviewApplicationHandler) Handle(ctx context.Context, cmd ReviewApplicationCommand) (*ReviewApplicationResult, error) {
	const op = "review_application"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	peek, err := d.Applications.FindByID(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, d.fail(op, err)
	}

	unlock, err := d.lockTriple(ctx, peek.StudentID, peek.InternshipID, peek.ID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	rep, err := d.requireRepresentative(ctx, cmd.RepresentativeID)
	if err != nil {
		return nil, d.fail(op, err)
	}

	app, err := d.Applications.FindByID(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	intern, err := d.Internships.FindByID(ctx, app.InternshipID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	if !intern.IsOwnedBy(rep.ID) {
		return nil, d.fail(op, shared.ErrInternshipNotOwned)
	}

	var eventType shared.EventType
	switch cmd.Decision {
	case DecisionApprove:
		if app.Status != application.StatusPending {
			return nil, d.fail(op, shared.ErrApplicationNotPending)
		}
		if intern.Status != internship.StatusApproved {
			return nil, d.fail(op, shared.ErrInternshipNotApproved)
		}
		if intern.RemainingSlots() <= 0 {
			return nil, d.fail(op, shared.ErrInternshipFull)
		}
		if err := app.Approve(); err != nil {
			return nil, d.fail(op, err)
		}
		eventType = shared.EventApplicationApproved
	case DecisionReject:
		if err := app.Reject(); err != nil {
			return nil, d.fail(op, err)
		}
		eventType = shared.EventApplicationRejected
	}

	err = d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return d.Applications.Save(ctx, app)
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("application reviewed",
		"application_id", app.ID,
		"student_id", app.StudentID,
		"internship_id", app.InternshipID,
		"status", app.Status,
		"representative_id", rep.ID,
	)

	event := shared.NewApplicationEvent(eventType,
		app.ID, app.StudentID, app.InternshipID, string(app.Status), rep.ID)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	d.publish(event)

	return &ReviewApplicationResult{Application: app}, nil
}
