package query

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PENDING REVIEWS QUERY
// The staff review queue: unapproved representatives and PENDING postings.
// ══════════════════════════════════════════════════════════════════════════════

// PendingReviewsQuery identifies the staff member.
type PendingReviewsQuery struct {
	StaffID string `validate:"required"`
}

// Validate validates the query.
func (q PendingReviewsQuery) Validate() error {
	return validateStruct("PendingReviews", q)
}

// PendingReviewsResult lists both queues.
type PendingReviewsResult struct {
	Representatives []UserDTO       `json:"representatives"`
	Internships     []InternshipDTO `json:"internships"`
}

// PendingReviewsHandler handles the PendingReviewsQuery.
type PendingReviewsHandler struct {
	deps Deps
}

// NewPendingReviewsHandler creates a new PendingReviewsHandler.
func NewPendingReviewsHandler(deps Deps) *PendingReviewsHandler {
	return &PendingReviewsHandler{deps: deps.withDefaults()}
}

// Handle lists the queues.
func (h *PendingReviewsHandler) Handle(ctx context.Context, q PendingReviewsQuery) (*PendingReviewsResult, error) {
	const op = "pending_reviews"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	if _, err := d.requireRole(ctx, q.StaffID, user.RoleStaff); err != nil {
		return nil, d.fail(op, err)
	}

	reps, err := d.Users.ListByRole(ctx, user.RoleRepresentative)
	if err != nil {
		return nil, d.fail(op, err)
	}
	result := &PendingReviewsResult{Representatives: []UserDTO{}}
	for _, r := range reps {
		if !r.IsApprovedRepresentative() {
			result.Representatives = append(result.Representatives, NewUserDTO(r))
		}
	}

	items, err := d.Internships.FindByStatus(ctx, internship.StatusPending)
	if err != nil {
		return nil, d.fail(op, err)
	}
	internship.SortByTitle(items)
	result.Internships = internshipDTOs(items)

	return result, nil
}
