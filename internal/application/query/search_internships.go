package query

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH INTERNSHIPS QUERY
// One filter, three scopes. Staff search every posting, representatives
// search their own, and students search what they are eligible for today.
// ══════════════════════════════════════════════════════════════════════════════

// SearchInternshipsQuery contains the actor and optional filter.
type SearchInternshipsQuery struct {
	ActorID string `validate:"required"`

	// Filter narrows the result. Nil matches everything in scope.
	Filter *internship.Filter
}

// Validate validates the query.
func (q SearchInternshipsQuery) Validate() error {
	return validateStruct("SearchInternships", q)
}

// SearchInternshipsResult lists matches sorted by title.
type SearchInternshipsResult struct {
	Scope       string          `json:"scope"`
	Internships []InternshipDTO `json:"internships"`
}

// SearchInternshipsHandler handles the SearchInternshipsQuery.
type SearchInternshipsHandler struct {
	deps Deps
}

// NewSearchInternshipsHandler creates a new SearchInternshipsHandler.
func NewSearchInternshipsHandler(deps Deps) *SearchInternshipsHandler {
	return &SearchInternshipsHandler{deps: deps.withDefaults()}
}

// Handle runs the search in the actor's scope.
func (h *SearchInternshipsHandler) Handle(ctx context.Context, q SearchInternshipsQuery) (*SearchInternshipsResult, error) {
	const op = "search_internships"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	actor, err := d.Users.FindByID(ctx, q.ActorID)
	if err != nil {
		return nil, d.fail(op, err)
	}

	f := internship.NewFilter()
	if q.Filter != nil {
		f = *q.Filter
	}

	var items []*internship.Internship
	switch actor.Role {
	case user.RoleStaff:
		items, err = d.Internships.Filter(ctx, f)
	case user.RoleRepresentative:
		items, err = d.Internships.Filter(ctx, f.WithRepresentative(actor.ID))
	case user.RoleStudent:
		items, err = d.eligible(ctx, actor, d.today(), q.Filter)
	default:
		err = shared.ErrInvalidRole
	}
	if err != nil {
		return nil, d.fail(op, err)
	}
	internship.SortByTitle(items)

	return &SearchInternshipsResult{
		Scope:       string(actor.Role),
		Internships: internshipDTOs(items),
	}, nil
}
