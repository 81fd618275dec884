package command

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT PLACEMENT COMMAND
// A student accepts a SUCCESSFUL application. This confirms one slot on the
// internship (FILLED when the last slot goes) and withdraws every other
// application of the student, whatever its status. A student accepts at most
// one placement, ever.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptPlacementCommand contains the data to accept an offer.
type AcceptPlacementCommand struct {
	StudentID     string `validate:"required"`
	ApplicationID string `validate:"required"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AcceptPlacementCommand) Validate() error {
	return validateStruct("AcceptPlacement", c)
}

// AcceptPlacementResult contains every entity the acceptance touched.
type AcceptPlacementResult struct {
	Application *application.Application
	Internship  *internship.Internship

	// Withdrawn lists sibling applications moved to WITHDRAWN.
	Withdrawn []*application.Application
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AcceptPlacementHandler handles the AcceptPlacementCommand.
type AcceptPlacementHandler struct {
	deps Deps
}

// NewAcceptPlacementHandler creates a new AcceptPlacementHandler.
func NewAcceptPlacementHandler(deps Deps) *AcceptPlacementHandler {
	return &AcceptPlacementHandler{deps: deps.withDefaults()}
}

// Handle executes the acceptance and its cascade as one unit.
func (h *AcceptPlacementHandler) Handle(ctx context.Context, cmd AcceptPlacementCommand) (*AcceptPlacementResult, error) {
	const op = "accept_placement"
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

	// ─────────────────────────────────────────────────────────────────────────
	// Re-read under the lock and inside the transaction, check everything,
	// then write. On PostgreSQL the reads lock the rows until commit.
	// ─────────────────────────────────────────────────────────────────────────

	var (
		app       *application.Application
		intern    *internship.Internship
		withdrawn []*application.Application
	)
	err = d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if app, err = d.Applications.FindByID(ctx, cmd.ApplicationID); err != nil {
			return err
		}
		if !app.IsOwnedBy(cmd.StudentID) {
			return shared.ErrApplicationNotOwned
		}
		if app.Status != application.StatusSuccessful {
			return shared.ErrApplicationNotSuccessful
		}

		siblings, err := d.Applications.FindByStudent(ctx, app.StudentID)
		if err != nil {
			return err
		}
		if application.HasAccepted(siblings, app.ID) {
			return shared.ErrPlacementAlreadyAccepted
		}

		if intern, err = d.Internships.FindByID(ctx, app.InternshipID); err != nil {
			return err
		}
		if err := app.Accept(); err != nil {
			return err
		}
		if err := intern.AddConfirmedSlot(); err != nil {
			return err
		}

		withdrawn = make([]*application.Application, 0, len(siblings))
		for _, s := range siblings {
			if s.ID == app.ID || s.Status == application.StatusWithdrawn {
				continue
			}
			s.ForceWithdraw()
			withdrawn = append(withdrawn, s)
		}

		if err := d.Applications.Save(ctx, app); err != nil {
			return err
		}
		if err := d.Internships.Save(ctx, intern); err != nil {
			return err
		}
		for _, s := range withdrawn {
			if err := d.Applications.Save(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("placement accepted",
		"application_id", app.ID,
		"student_id", app.StudentID,
		"internship_id", intern.ID,
		"confirmed_slots", intern.ConfirmedSlots,
		"max_slots", intern.MaxSlots,
		"withdrawn", len(withdrawn),
	)

	events := make([]shared.Event, 0, len(withdrawn)+2)
	accepted := shared.NewApplicationEvent(shared.EventApplicationAccepted,
		app.ID, app.StudentID, app.InternshipID, string(app.Status), cmd.StudentID)
	accepted.BaseEvent = accepted.WithCorrelationID(cmd.CorrelationID)
	events = append(events, accepted)

	if intern.Status == internship.StatusFilled {
		filled := shared.NewInternshipEvent(shared.EventInternshipFilled,
			intern.ID, intern.Title, intern.CompanyName, intern.RepresentativeID,
			string(intern.Status), intern.ConfirmedSlots, intern.MaxSlots)
		filled.BaseEvent = filled.WithCorrelationID(cmd.CorrelationID)
		events = append(events, filled)
	}

	for _, s := range withdrawn {
		e := shared.NewApplicationEvent(shared.EventApplicationWithdrawn,
			s.ID, s.StudentID, s.InternshipID, string(s.Status), cmd.StudentID).AsCascade()
		e.BaseEvent = e.WithCorrelationID(cmd.CorrelationID)
		events = append(events, e)
	}
	d.publish(events...)

	return &AcceptPlacementResult{
		Application: app,
		Internship:  intern,
		Withdrawn:   withdrawn,
	}, nil
}
