package query

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ─────────────────────────────────────────────────────────────────────────────
// A student's own applications
// ─────────────────────────────────────────────────────────────────────────────

// StudentApplicationsQuery lists a student's applications.
type StudentApplicationsQuery struct {
	StudentID string `validate:"required"`
}

// Validate validates the query.
func (q StudentApplicationsQuery) Validate() error {
	return validateStruct("StudentApplications", q)
}

// ApplicationsResult lists applications oldest first.
type ApplicationsResult struct {
	Applications []ApplicationDTO `json:"applications"`

	// Active counts PENDING and unaccepted SUCCESSFUL applications.
	Active int `json:"active"`
}

// StudentApplicationsHandler handles the StudentApplicationsQuery.
type StudentApplicationsHandler struct {
	deps Deps
}

// NewStudentApplicationsHandler creates a new StudentApplicationsHandler.
func NewStudentApplicationsHandler(deps Deps) *StudentApplicationsHandler {
	return &StudentApplicationsHandler{deps: deps.withDefaults()}
}

// Handle lists the applications.
func (h *StudentApplicationsHandler) Handle(ctx context.Context, q StudentApplicationsQuery) (*ApplicationsResult, error) {
	const op = "student_applications"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	if _, err := d.requireRole(ctx, q.StudentID, user.RoleStudent); err != nil {
		return nil, d.fail(op, err)
	}

	apps, err := d.Applications.FindByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	dtos, err := d.applicationDTOs(ctx, apps)
	if err != nil {
		return nil, d.fail(op, err)
	}

	return &ApplicationsResult{Applications: dtos, Active: application.CountActive(apps)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Applications to one internship
// ─────────────────────────────────────────────────────────────────────────────

// InternshipApplicationsQuery lists applications to a posting. The actor
// must be staff or the owning representative.
type InternshipApplicationsQuery struct {
	ActorID      string `validate:"required"`
	InternshipID string `validate:"required"`
}

// Validate validates the query.
func (q InternshipApplicationsQuery) Validate() error {
	return validateStruct("InternshipApplications", q)
}

// InternshipApplicationsHandler handles the InternshipApplicationsQuery.
type InternshipApplicationsHandler struct {
	deps Deps
}

// NewInternshipApplicationsHandler creates a new InternshipApplicationsHandler.
func NewInternshipApplicationsHandler(deps Deps) *InternshipApplicationsHandler {
	return &InternshipApplicationsHandler{deps: deps.withDefaults()}
}

// Handle lists the applications.
func (h *InternshipApplicationsHandler) Handle(ctx context.Context, q InternshipApplicationsQuery) (*ApplicationsResult, error) {
	const op = "internship_applications"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	actor, err := d.Users.FindByID(ctx, q.ActorID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	intern, err := d.Internships.FindByID(ctx, q.InternshipID)
	if err != nil {
		return nil, d.fail(op, err)
	}

	switch {
	case actor.IsStaff():
	case actor.IsRepresentative():
		if !intern.IsOwnedBy(actor.ID) {
			return nil, d.fail(op, shared.ErrInternshipNotOwned)
		}
	default:
		return nil, d.fail(op, shared.ErrWrongRole)
	}

	apps, err := d.Applications.FindByInternship(ctx, intern.ID)
	if err != nil {
		return nil, d.fail(op, err)
	}
	dtos, err := d.applicationDTOs(ctx, apps)
	if err != nil {
		return nil, d.fail(op, err)
	}

	return &ApplicationsResult{Applications: dtos, Active: application.CountActive(apps)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Withdrawal requests awaiting staff
// ─────────────────────────────────────────────────────────────────────────────

// WithdrawalRequestsQuery lists open withdrawal requests.
type WithdrawalRequestsQuery struct {
	StaffID string `validate:"required"`
}

// Validate validates the query.
func (q WithdrawalRequestsQuery) Validate() error {
	return validateStruct("WithdrawalRequests", q)
}

// WithdrawalRequestsHandler handles the WithdrawalRequestsQuery.
type WithdrawalRequestsHandler struct {
	deps Deps
}

// NewWithdrawalRequestsHandler creates a new WithdrawalRequestsHandler.
func NewWithdrawalRequestsHandler(deps Deps) *WithdrawalRequestsHandler {
	return &WithdrawalRequestsHandler{deps: deps.withDefaults()}
}

// Handle lists the requests.
func (h *WithdrawalRequestsHandler) Handle(ctx context.Context, q WithdrawalRequestsQuery) (*ApplicationsResult, error) {
	const op = "withdrawal_requests"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	if _, err := d.requireRole(ctx, q.StaffID, user.RoleStaff); err != nil {
		return nil, d.fail(op, err)
	}

	apps, err := d.Applications.FindWithdrawalRequests(ctx)
	if err != nil {
		return nil, d.fail(op, err)
	}
	dtos, err := d.applicationDTOs(ctx, apps)
	if err != nil {
		return nil, d.fail(op, err)
	}
	return &ApplicationsResult{Applications: dtos, Active: application.CountActive(apps)}, nil
}
