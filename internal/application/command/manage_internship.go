package command

import (
	"context"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE INTERNSHIP COMMAND
// An approved representative posts an internship for their company. The
// posting starts PENDING and waits for staff review.
// ══════════════════════════════════════════════════════════════════════════════

// CreateInternshipCommand contains the posting fields.
type CreateInternshipCommand struct {
	RepresentativeID string    `validate:"required"`
	Title            string    `validate:"required,max=200"`
	Description      string    `validate:"max=4000"`
	Level            string    `validate:"required"`
	Major            string    `validate:"required"`
	OpenDate         time.Time `validate:"required"`
	CloseDate        time.Time `validate:"required,gtefield=OpenDate"`

	// MaxSlots is clamped to [1, Rules.SlotLimit].
	MaxSlots int
	Visible  bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateInternshipCommand) Validate() error {
	return validateStruct("CreateInternship", c)
}

// InternshipResult carries the posting after a command.
type InternshipResult struct {
	Internship *internship.Internship
}

// CreateInternshipHandler handles the CreateInternshipCommand.
type CreateInternshipHandler struct {
	deps Deps
}

// NewCreateInternshipHandler creates a new CreateInternshipHandler.
func NewCreateInternshipHandler(deps Deps) *CreateInternshipHandler {
	return &CreateInternshipHandler{deps: deps.withDefaults()}
}

// Handle creates the posting.
func (h *CreateInternshipHandler) Handle(ctx context.Context, cmd CreateInternshipCommand) (*InternshipResult, error) {
	const op = "create_internship"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	level, err := internship.ParseLevel(cmd.Level)
	if err != nil {
		return nil, d.fail(op, err)
	}

	rep, err := d.requireRepresentative(ctx, cmd.RepresentativeID)
	if err != nil {
		return nil, d.fail(op, err)
	}

	intern, err := internship.NewInternship(internship.NewInternshipParams{
		ID:               d.NewID(),
		Title:            cmd.Title,
		Description:      cmd.Description,
		Level:            level,
		Major:            cmd.Major,
		OpenDate:         cmd.OpenDate,
		CloseDate:        cmd.CloseDate,
		RepresentativeID: rep.ID,
		CompanyName:      rep.Representative.CompanyName,
		MaxSlots:         cmd.MaxSlots,
		SlotLimit:        d.Rules.SlotLimit,
		Visible:          cmd.Visible,
	})
	if err != nil {
		return nil, d.fail(op, err)
	}

	if err := d.Internships.Save(ctx, intern); err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("internship created",
		"internship_id", intern.ID,
		"representative_id", rep.ID,
		"company", intern.CompanyName,
		"max_slots", intern.MaxSlots,
	)

	d.publish(internshipEvent(shared.EventInternshipCreated, intern, cmd.CorrelationID))

	return &InternshipResult{Internship: intern}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EDIT INTERNSHIP COMMAND
// The owner edits a PENDING posting. Nil fields are left untouched and a
// slot count outside (0, Rules.SlotLimit] is ignored.
// ══════════════════════════════════════════════════════════════════════════════

// EditInternshipCommand contains the optional changes.
type EditInternshipCommand struct {
	RepresentativeID string `validate:"required"`
	InternshipID     string `validate:"required"`

	Title       *string
	Description *string
	Level       *string
	Major       *string
	OpenDate    *time.Time
	CloseDate   *time.Time
	MaxSlots    *int
}

// Validate validates the command.
func (c EditInternshipCommand) Validate() error {
	return validateStruct("EditInternship", c)
}

// EditInternshipHandler handles the EditInternshipCommand.
type EditInternshipHandler struct {
	deps Deps
}

// NewEditInternshipHandler creates a new EditInternshipHandler.
func NewEditInternshipHandler(deps Deps) *EditInternshipHandler {
	return &EditInternshipHandler{deps: deps.withDefaults()}
}

// Handle applies the edit.
func (h *EditInternshipHandler) Handle(ctx context.Context, cmd EditInternshipCommand) (*InternshipResult, error) {
	const op = "edit_internship"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	changes := internship.Changes{
		Title:       cmd.Title,
		Description: cmd.Description,
		Major:       cmd.Major,
		OpenDate:    cmd.OpenDate,
		CloseDate:   cmd.CloseDate,
		MaxSlots:    cmd.MaxSlots,
	}
	if cmd.Level != nil {
		level, err := internship.ParseLevel(*cmd.Level)
		if err != nil {
			return nil, d.fail(op, err)
		}
		changes.Level = &level
	}

	intern, unlock, err := d.loadOwned(ctx, cmd.RepresentativeID, cmd.InternshipID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	if err := intern.Edit(changes, d.Rules.SlotLimit); err != nil {
		return nil, d.fail(op, err)
	}
	if err := d.Internships.Save(ctx, intern); err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("internship edited", "internship_id", intern.ID, "representative_id", cmd.RepresentativeID)

	return &InternshipResult{Internship: intern}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE INTERNSHIP COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteInternshipCommand removes a PENDING posting.
type DeleteInternshipCommand struct {
	RepresentativeID string `validate:"required"`
	InternshipID     string `validate:"required"`
}

// Validate validates the command.
func (c DeleteInternshipCommand) Validate() error {
	return validateStruct("DeleteInternship", c)
}

// DeleteInternshipHandler handles the DeleteInternshipCommand.
type DeleteInternshipHandler struct {
	deps Deps
}

// NewDeleteInternshipHandler creates a new DeleteInternshipHandler.
func NewDeleteInternshipHandler(deps Deps) *DeleteInternshipHandler {
	return &DeleteInternshipHandler{deps: deps.withDefaults()}
}

// Handle deletes the posting.
func (h *DeleteInternshipHandler) Handle(ctx context.Context, cmd DeleteInternshipCommand) error {
	const op = "delete_internship"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return d.fail(op, err)
	}

	intern, unlock, err := d.loadOwned(ctx, cmd.RepresentativeID, cmd.InternshipID)
	if err != nil {
		return d.fail(op, err)
	}
	defer unlock()

	if err := intern.CanDelete(); err != nil {
		return d.fail(op, err)
	}
	if err := d.Internships.Delete(ctx, intern.ID); err != nil {
		return d.fail(op, err)
	}

	d.Logger.Info("internship deleted", "internship_id", intern.ID, "representative_id", cmd.RepresentativeID)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SET VISIBILITY COMMAND
// The owner shows or hides a posting from students, in any status.
// ══════════════════════════════════════════════════════════════════════════════

// SetVisibilityCommand toggles student visibility.
type SetVisibilityCommand struct {
	RepresentativeID string `validate:"required"`
	InternshipID     string `validate:"required"`
	Visible          bool
}

// Validate validates the command.
func (c SetVisibilityCommand) Validate() error {
	return validateStruct("SetVisibility", c)
}

// SetVisibilityHandler handles the SetVisibilityCommand.
type SetVisibilityHandler struct {
	deps Deps
}

// NewSetVisibilityHandler creates a new SetVisibilityHandler.
func NewSetVisibilityHandler(deps Deps) *SetVisibilityHandler {
	return &SetVisibilityHandler{deps: deps.withDefaults()}
}

// Handle sets the visibility flag.
func (h *SetVisibilityHandler) Handle(ctx context.Context, cmd SetVisibilityCommand) (*InternshipResult, error) {
	const op = "set_visibility"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	intern, unlock, err := d.loadOwned(ctx, cmd.RepresentativeID, cmd.InternshipID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	if intern.Visible != cmd.Visible {
		intern.SetVisibility(cmd.Visible)
		if err := d.Internships.Save(ctx, intern); err != nil {
			return nil, d.fail(op, err)
		}
	}

	d.Logger.Info("internship visibility set", "internship_id", intern.ID, "visible", intern.Visible)
	return &InternshipResult{Internship: intern}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// loadOwned locks the internship and loads it for its owning representative.
// The caller must call unlock when err is nil.
func (d Deps) loadOwned(ctx context.Context, repID, internshipID string) (*internship.Internship, func(), error) {
	rep, err := d.requireRepresentative(ctx, repID)
	if err != nil {
		return nil, nil, err
	}

	unlock, err := d.lockTriple(ctx, "", internshipID, "")
	if err != nil {
		return nil, nil, err
	}

	intern, err := d.Internships.FindByID(ctx, internshipID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if !intern.IsOwnedBy(rep.ID) {
		unlock()
		return nil, nil, shared.ErrInternshipNotOwned
	}
	return intern, unlock, nil
}

func internshipEvent(t shared.EventType, i *internship.Internship, correlationID string) shared.InternshipEvent {
	e := shared.NewInternshipEvent(t, i.ID, i.Title, i.CompanyName, i.RepresentativeID,
		string(i.Status), i.ConfirmedSlots, i.MaxSlots)
	e.BaseEvent = e.WithCorrelationID(correlationID)
	return e
}
