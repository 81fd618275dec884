package command

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY INTERNSHIP COMMAND
// A student applies to an approved internship. The student may hold at most
// Rules.MaxActiveApplications active applications, may never apply once a
// placement was accepted, and may apply to each internship only once.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyInternshipCommand contains the data to submit an application.
type ApplyInternshipCommand struct {
	StudentID    string `validate:"required"`
	InternshipID string `validate:"required"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ApplyInternshipCommand) Validate() error {
	return validateStruct("ApplyInternship", c)
}

// ApplyInternshipResult contains the created application.
type ApplyInternshipResult struct {
	Application *application.Application

	// ActiveApplications is the student's active count including this one.
	ActiveApplications int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplyInternshipHandler handles the ApplyInternshipCommand.
type ApplyInternshipHandler struct {
	deps Deps
}

// NewApplyInternshipHandler creates a new ApplyInternshipHandler.
func NewApplyInternshipHandler(deps Deps) *ApplyInternshipHandler {
	return &ApplyInternshipHandler{deps: deps.withDefaults()}
}

// Handle executes the apply command.
func (h *ApplyInternshipHandler) Handle(ctx context.Context, cmd ApplyInternshipCommand) (*ApplyInternshipResult, error) {
	const op = "apply_internship"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	unlock, err := d.lockTriple(ctx, cmd.StudentID, cmd.InternshipID, "")
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	// The rule checks read inside the transaction. On PostgreSQL those reads
	// lock the student and internship rows until commit.
	var (
		app    *application.Application
		active int
	)
	err = d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := d.requireStudent(ctx, cmd.StudentID); err != nil {
			return err
		}

		intern, err := d.Internships.FindByID(ctx, cmd.InternshipID)
		if err != nil {
			return err
		}
		if intern.Status != internship.StatusApproved {
			return shared.ErrInternshipNotApproved
		}

		existing, err := d.Applications.FindByStudent(ctx, cmd.StudentID)
		if err != nil {
			return err
		}
		if application.HasAccepted(existing, "") {
			return shared.ErrPlacementAlreadyAccepted
		}
		active = application.CountActive(existing)
		if active >= d.Rules.MaxActiveApplications {
			return shared.ErrActiveApplicationLimit
		}
		if application.FindForInternship(existing, cmd.InternshipID) != nil {
			return shared.ErrDuplicateApplication
		}

		if app, err = application.New(d.NewID(), cmd.StudentID, cmd.InternshipID); err != nil {
			return err
		}
		return d.Applications.Save(ctx, app)
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("application submitted",
		"application_id", app.ID,
		"student_id", app.StudentID,
		"internship_id", app.InternshipID,
		"status", app.Status,
	)

	event := shared.NewApplicationEvent(shared.EventApplicationSubmitted,
		app.ID, app.StudentID, app.InternshipID, string(app.Status), cmd.StudentID)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	d.publish(event)

	return &ApplyInternshipResult{
		Application:        app,
		ActiveApplications: active + 1,
	}, nil
}
