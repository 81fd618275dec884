package command

import (
	"context"
	"strings"

	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER REPRESENTATIVE COMMAND
// A company representative signs up. The email is both user id and login id,
// the company is created on first use, and the account stays unapproved
// until staff review it.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterRepresentativeCommand contains the sign-up data.
type RegisterRepresentativeCommand struct {
	Name        string `validate:"required,max=200"`
	Email       string `validate:"required,email"`
	CompanyName string `validate:"required,max=200"`
	Department  string `validate:"max=200"`
	Position    string `validate:"max=200"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterRepresentativeCommand) Validate() error {
	return validateStruct("RegisterRepresentative", c)
}

// RepresentativeResult carries the representative after a command.
type RepresentativeResult struct {
	Representative *user.User

	// CompanyCreated is true when registration created the company.
	CompanyCreated bool
}

// RegisterRepresentativeHandler handles the RegisterRepresentativeCommand.
type RegisterRepresentativeHandler struct {
	deps Deps
}

// NewRegisterRepresentativeHandler creates a new RegisterRepresentativeHandler.
func NewRegisterRepresentativeHandler(deps Deps) *RegisterRepresentativeHandler {
	return &RegisterRepresentativeHandler{deps: deps.withDefaults()}
}

// Handle registers the representative.
func (h *RegisterRepresentativeHandler) Handle(ctx context.Context, cmd RegisterRepresentativeCommand) (*RepresentativeResult, error) {
	const op = "register_representative"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	email := strings.TrimSpace(cmd.Email)

	unlock, err := d.Locker.Lock(ctx, shared.LockPrefixUser+strings.ToLower(email))
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	exists, err := d.Users.Exists(ctx, email)
	if err != nil {
		return nil, d.fail(op, err)
	}
	if exists {
		return nil, d.fail(op, shared.ErrUserAlreadyExists)
	}

	result := &RepresentativeResult{}

	comp, err := d.Companies.FindByName(ctx, cmd.CompanyName)
	switch {
	case err == nil:
	case shared.IsNotFound(err):
		comp, err = company.New(cmd.CompanyName)
		if err != nil {
			return nil, d.fail(op, err)
		}
		result.CompanyCreated = true
	default:
		return nil, d.fail(op, err)
	}

	rep, err := user.NewRepresentative(cmd.Name, email, d.Rules.DefaultPassword,
		comp.Name, cmd.Department, cmd.Position)
	if err != nil {
		return nil, d.fail(op, err)
	}

	err = d.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if result.CompanyCreated {
			if err := d.Companies.Save(ctx, comp); err != nil {
				return err
			}
		}
		return d.Users.Save(ctx, rep)
	})
	if err != nil {
		return nil, d.fail(op, err)
	}
	result.Representative = rep

	d.Logger.Info("representative registered",
		"representative_id", rep.ID,
		"company", comp.Name,
		"company_created", result.CompanyCreated,
	)

	event := shared.NewRepresentativeEvent(shared.EventRepresentativeRegistered,
		rep.ID, rep.Email, comp.Name, false)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	d.publish(event)

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW REPRESENTATIVE COMMAND
// Staff open or close a representative's approval gate.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewRepresentativeCommand contains the staff verdict.
type ReviewRepresentativeCommand struct {
	StaffID          string   `validate:"required"`
	RepresentativeID string   `validate:"required"`
	Decision         Decision `validate:"required,oneof=approve reject"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ReviewRepresentativeCommand) Validate() error {
	return validateStruct("ReviewRepresentative", c)
}

// ReviewRepresentativeHandler handles the ReviewRepresentativeCommand.
type ReviewRepresentativeHandler struct {
	deps Deps
}

// NewReviewRepresentativeHandler creates a new ReviewRepresentativeHandler.
func NewReviewRepresentativeHandler(deps Deps) *ReviewRepresentativeHandler {
	return &ReviewRepresentativeHandler{deps: deps.withDefaults()}
}

// Handle executes the review.
func (h *ReviewRepresentativeHandler) Handle(ctx context.Context, cmd ReviewRepresentativeCommand) (*RepresentativeResult, error) {
	const op = "review_representative"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	if _, err := d.requireStaff(ctx, cmd.StaffID); err != nil {
		return nil, d.fail(op, err)
	}

	unlock, err := d.Locker.Lock(ctx, shared.LockPrefixUser+strings.ToLower(cmd.RepresentativeID))
	if err != nil {
		return nil, d.fail(op, err)
	}
	defer unlock()

	rep, err := d.Users.FindByID(ctx, cmd.RepresentativeID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	approved := cmd.Decision == DecisionApprove
	if err := rep.SetApproval(approved); err != nil {
		return nil, d.fail(op, err)
	}
	if err := d.Users.Save(ctx, rep); err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("representative reviewed",
		"representative_id", rep.ID,
		"approved", approved,
		"staff_id", cmd.StaffID,
	)

	if approved {
		event := shared.NewRepresentativeEvent(shared.EventRepresentativeApproved,
			rep.ID, rep.Email, rep.Representative.CompanyName, true)
		event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
		d.publish(event)
	}

	return &RepresentativeResult{Representative: rep}, nil
}
