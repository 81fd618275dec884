// Package command contains write operations (CQRS - Commands).
//
// Every lifecycle handler follows the same shape: validate the command,
// resolve the (student, internship, application) triple it touches, lock the
// triple, re-read every entity under the lock, check all preconditions, and
// only then write inside a transaction. Events are published after commit.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Feature toggles consulted by handlers. The names match config.FeatureFlags.
const (
	FeatureReleaseSlotOnWithdrawal = "placement.release_slot_on_withdrawal"
	FeatureResetOnWithdrawalReject = "placement.reset_on_withdrawal_reject"
	FeatureRequireRepApproval      = "representative.require_approval"
)

// FeatureToggles answers whether a policy toggle is on for an actor.
type FeatureToggles interface {
	Enabled(feature, actorID string) bool
}

// StaticToggles is a fixed toggle set.
type StaticToggles map[string]bool

// Enabled implements FeatureToggles.
func (t StaticToggles) Enabled(feature, _ string) bool {
	return t[feature]
}

// DefaultToggles mirrors the config defaults.
func DefaultToggles() StaticToggles {
	return StaticToggles{
		FeatureReleaseSlotOnWithdrawal: false,
		FeatureResetOnWithdrawalReject: true,
		FeatureRequireRepApproval:      true,
	}
}

// Rules holds the numeric limits of the workflow.
type Rules struct {
	MaxActiveApplications int
	SlotLimit             int
	SeniorYear            int
	DefaultPassword       string
}

// DefaultRules returns the standard limits.
func DefaultRules() Rules {
	return Rules{
		MaxActiveApplications: 3,
		SlotLimit:             internship.DefaultMaxSlots,
		SeniorYear:            3,
		DefaultPassword:       "password",
	}
}

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Deps bundles the collaborators shared by all handlers. Nil optional fields
// are replaced with defaults by the handler constructors.
type Deps struct {
	Internships  internship.Repository
	Applications application.Repository
	Users        user.Repository
	Companies    company.Repository

	// Locker serialises operations on overlapping entities. Optional.
	Locker shared.Locker

	// Tx groups multi-entity writes. Optional.
	Tx shared.Transactor

	// Publisher receives domain events after commit. Optional.
	Publisher shared.EventPublisher

	Toggles FeatureToggles
	Rules   Rules

	// Clock and Location decide "today". Optional.
	Clock    timeutil.Clock
	Location *time.Location

	// NewID generates entity ids. Optional.
	NewID func() string

	Logger *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Locker == nil {
		d.Locker = passthroughLocker{}
	}
	if d.Tx == nil {
		d.Tx = passthroughTx{}
	}
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Toggles == nil {
		d.Toggles = DefaultToggles()
	}
	defaults := DefaultRules()
	if d.Rules.MaxActiveApplications <= 0 {
		d.Rules.MaxActiveApplications = defaults.MaxActiveApplications
	}
	if d.Rules.SlotLimit <= 0 {
		d.Rules.SlotLimit = defaults.SlotLimit
	}
	if d.Rules.SeniorYear <= 0 {
		d.Rules.SeniorYear = defaults.SeniorYear
	}
	if d.Rules.DefaultPassword == "" {
		d.Rules.DefaultPassword = defaults.DefaultPassword
	}
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

type passthroughLocker struct{}

func (passthroughLocker) Lock(context.Context, ...string) (func(), error) {
	return func() {}, nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Locking and publishing
// ─────────────────────────────────────────────────────────────────────────────

// lockTriple locks every non-empty id of the triple in sorted order.
func (d Deps) lockTriple(ctx context.Context, studentID, internshipID, applicationID string) (func(), error) {
	return d.Locker.Lock(ctx, shared.LockKeys(studentID, internshipID, applicationID)...)
}

// publish sends events and logs failures; delivery never fails a command
// that already committed.
func (d Deps) publish(events ...shared.Event) {
	for _, e := range events {
		if err := d.Publisher.Publish(e); err != nil {
			d.Logger.Warn("failed to publish event",
				"event_type", e.EventType(),
				"aggregate_id", e.AggregateID(),
				"error", err,
			)
		}
	}
}

// fail logs a rejected operation and returns the error. Domain errors pass
// through untouched; anything else is wrapped with the operation name.
func (d Deps) fail(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		d.Logger.Debug("operation rejected", "op", op, "kind", shared.KindOf(err), "error", err)
		return err
	}
	d.Logger.Error("operation failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Actor resolution
// ─────────────────────────────────────────────────────────────────────────────

func (d Deps) requireStudent(ctx context.Context, id string) (*user.User, error) {
	u, err := d.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsStudent() {
		return nil, shared.ErrWrongRole
	}
	return u, nil
}

func (d Deps) requireStaff(ctx context.Context, id string) (*user.User, error) {
	u, err := d.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsStaff() {
		return nil, shared.ErrWrongRole
	}
	return u, nil
}

// requireRepresentative also enforces the approval gate when it is on.
func (d Deps) requireRepresentative(ctx context.Context, id string) (*user.User, error) {
	u, err := d.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsRepresentative() {
		return nil, shared.ErrWrongRole
	}
	if !u.Representative.Approved && d.Toggles.Enabled(FeatureRequireRepApproval, u.ID) {
		return nil, shared.ErrRepresentativeNotApproved
	}
	return u, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct-tag validation and maps failures to
// shared.ErrValidation.
func validateStruct(op string, cmd interface{}) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return shared.WrapError("command", op, shared.ErrValidation,
			"invalid "+strings.Join(fields, ", "), err)
	}
	return shared.WrapError("command", op, shared.ErrValidation, "invalid command", err)
}
