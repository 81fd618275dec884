package command

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW INTERNSHIP COMMAND
// Staff approve or reject a PENDING posting.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewInternshipCommand contains the staff verdict.
type ReviewInternshipCommand struct {
	StaffID      string   `validate:"required"`
	InternshipID string   `validate:"required"`
	Decision     Decision `validate:"required,oneof=approve reject"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ReviewInternshipCommand) Validate() error {
	return validateStruct("ReviewInternship", c)
}

// ReviewInternshipHandler handles the ReviewInternshipCommand.
type ReviewInternshipHandler struct {
	deps Deps
}

// NewReviewInternshipHandler creates a new ReviewInternshipHandler.
func NewReviewInternshipHandler(deps Deps) *ReviewInternshipHandler {
	return &ReviewInternshipHandler{deps: deps.withDefaults()}
}

// Handle executes the review.
func (h *ReviewInternshipHandler) Handle(ctx context.Context, cmd ReviewInternshipCommand) (*InternshipResult, error) {
	const op = "review_internship"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	if _, err := d.requireStaff(ctx, cmd.StaffID); err != nil {
		return nil, d.fail(op, err)
	}

	unlock, err := d.lockTriple(ctx, "", cmd.InternshipID, "")
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	intern, err := d.Internships.FindByID(ctx, cmd.InternshipID)
	if err != nil {
		return nil, d.fail(op, err)
	}

	eventType := shared.EventInternshipApproved
	if cmd.Decision == DecisionApprove {
		err = intern.Approve()
	} else {
		err = intern.Reject()
		eventType = shared.EventInternshipRejected
	}
	if err != nil {
		return nil, d.fail(op, err)
	}

	if err := d.Internships.Save(ctx, intern); err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("internship reviewed",
		"internship_id", intern.ID,
		"status", intern.Status,
		"staff_id", cmd.StaffID,
	)

	d.publish(internshipEvent(eventType, intern, cmd.CorrelationID))

	return &InternshipResult{Internship: intern}, nil
}
