package command

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST WITHDRAWAL COMMAND
// Phase one of a withdrawal: the student raises the request flag. The status
// does not change until staff resolve the request.
// ══════════════════════════════════════════════════════════════════════════════

// RequestWithdrawalCommand contains the data to request a withdrawal.
type RequestWithdrawalCommand struct {
	StudentID     string `validate:"required"`
	ApplicationID string `validate:"required"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RequestWithdrawalCommand) Validate() error {
	return validateStruct("RequestWithdrawal", c)
}

// RequestWithdrawalResult contains the flagged application.
type RequestWithdrawalResult struct {
	Application *application.Application

	// AlreadyRequested is true when the flag was set before this call.
	AlreadyRequested bool
}

// RequestWithdrawalHandler handles the RequestWithdrawalCommand.
type RequestWithdrawalHandler struct {
	deps Deps
}

// NewRequestWithdrawalHandler creates a new RequestWithdrawalHandler.
func NewRequestWithdrawalHandler(deps Deps) *RequestWithdrawalHandler {
	return &RequestWithdrawalHandler{deps: deps.withDefaults()}
}

// Handle raises the withdrawal flag. Repeating the request is a no-op.
func (h *RequestWithdrawalHandler) Handle(ctx context.Context, cmd RequestWithdrawalCommand) (*RequestWithdrawalResult, error) {
	const op = "request_withdrawal"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	peek, err := d.Applications.FindByID(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	if !peek.IsOwnedBy(cmd.StudentID) {
		return nil, d.fail(op, shared.ErrApplicationNotOwned)
	}

	unlock, err := d.lockTriple(ctx, peek.StudentID, peek.InternshipID, peek.ID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	app, err := d.Applications.FindByID(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	if !app.IsOwnedBy(cmd.StudentID) {
		return nil, d.fail(op, shared.ErrApplicationNotOwned)
	}
	if app.Status.IsTerminal() {
		return nil, d.fail(op, shared.ErrApplicationAlreadyClosed)
	}
	if app.WithdrawalRequested {
		return &RequestWithdrawalResult{Application: app, AlreadyRequested: true}, nil
	}

	if err := app.RequestWithdrawal(); err != nil {
		return nil, d.fail(op, err)
	}

	err = d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return d.Applications.Save(ctx, app)
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("withdrawal requested",
		"application_id", app.ID,
		"student_id", app.StudentID,
		"internship_id", app.InternshipID,
		"status", app.Status,
	)

	event := shared.NewApplicationEvent(shared.EventWithdrawalRequested,
		app.ID, app.StudentID, app.InternshipID, string(app.Status), cmd.StudentID)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	d.publish(event)

	return &RequestWithdrawalResult{Application: app}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE WITHDRAWAL COMMAND
// Phase two: staff confirm the request (WITHDRAWN) or turn it down. Turning
// it down returns the application to PENDING while the reset toggle is on;
// an accepted placement is never reset, only its flag is cleared.
// Confirming an accepted placement frees its slot only while the release
// toggle is on.
// ══════════════════════════════════════════════════════════════════════════════

// ResolveWithdrawalCommand contains the staff verdict.
type ResolveWithdrawalCommand struct {
	StaffID       string   `validate:"required"`
	ApplicationID string   `validate:"required"`
	Decision      Decision `validate:"required,oneof=approve reject"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResolveWithdrawalCommand) Validate() error {
	return validateStruct("ResolveWithdrawal", c)
}

// ResolveWithdrawalResult contains the resolved application.
type ResolveWithdrawalResult struct {
	Application *application.Application

	// Internship is set when a confirmed slot was released.
	Internship *internship.Internship

	SlotReleased bool
}

// ResolveWithdrawalHandler handles the ResolveWithdrawalCommand.
type ResolveWithdrawalHandler struct {
	deps Deps
}

// NewResolveWithdrawalHandler creates a new ResolveWithdrawalHandler.
func NewResolveWithdrawalHandler(deps Deps) *ResolveWithdrawalHandler {
	return &ResolveWithdrawalHandler{deps: deps.withDefaults()}
}

// Handle resolves a pending withdrawal request.
func (h *ResolveWithdrawalHandler) Handle(ctx context.Context, cmd ResolveWithdrawalCommand) (*ResolveWithdrawalResult, error) {
	const op = "resolve_withdrawal"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	if _, err := d.requireStaff(ctx, cmd.StaffID); err != nil {
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

	var (
		app       *application.Application
		result    *ResolveWithdrawalResult
		eventType shared.EventType
	)
	err = d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if app, err = d.Applications.FindByID(ctx, cmd.ApplicationID); err != nil {
			return err
		}
		if !app.WithdrawalRequested {
			return shared.ErrNoWithdrawalRequested
		}
		result = &ResolveWithdrawalResult{Application: app}

		switch cmd.Decision {
		case DecisionApprove:
			holdsSlot := app.Status == application.StatusSuccessful && app.StudentAccepted
			if err := app.ConfirmWithdrawal(); err != nil {
				return err
			}
			if holdsSlot && d.Toggles.Enabled(FeatureReleaseSlotOnWithdrawal, cmd.StaffID) {
				intern, err := d.Internships.FindByID(ctx, app.InternshipID)
				if err != nil {
					return err
				}
				if result.SlotReleased = intern.ReleaseConfirmedSlot(); result.SlotReleased {
					result.Internship = intern
				}
			}
			eventType = shared.EventApplicationWithdrawn

		case DecisionReject:
			reset := !app.StudentAccepted && d.Toggles.Enabled(FeatureResetOnWithdrawalReject, cmd.StaffID)
			if err := app.DenyWithdrawal(reset); err != nil {
				return err
			}
			eventType = shared.EventApplicationWithdrawalRejected
		}

		if err := d.Applications.Save(ctx, app); err != nil {
			return err
		}
		if result.Internship != nil {
			return d.Internships.Save(ctx, result.Internship)
		}
		return nil
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("withdrawal resolved",
		"application_id", app.ID,
		"student_id", app.StudentID,
		"internship_id", app.InternshipID,
		"status", app.Status,
		"decision", cmd.Decision,
		"slot_released", result.SlotReleased,
	)

	event := shared.NewApplicationEvent(eventType,
		app.ID, app.StudentID, app.InternshipID, string(app.Status), cmd.StaffID)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	d.publish(event)

	return result, nil
}
