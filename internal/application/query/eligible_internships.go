package query

import (
	"context"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/user"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBLE INTERNSHIPS QUERY
// Lists the postings a student may see and apply to on a given day: approved,
// visible, open that day, in the student's major, and within the student's
// seniority gate. An optional filter is ANDed in first.
// ══════════════════════════════════════════════════════════════════════════════

// EligibleInternshipsQuery contains the student and optional refinements.
type EligibleInternshipsQuery struct {
	StudentID string `validate:"required"`

	// Filter narrows the candidates. Nil means no refinement.
	Filter *internship.Filter

	// On is the day to evaluate. Zero means today.
	On time.Time
}

// Validate validates the query.
func (q EligibleInternshipsQuery) Validate() error {
	return validateStruct("EligibleInternships", q)
}

// EligibleInternshipsResult lists eligible postings sorted by title.
type EligibleInternshipsResult struct {
	StudentID   string          `json:"student_id"`
	Date        string          `json:"date"`
	Internships []InternshipDTO `json:"internships"`
}

// EligibleInternshipsHandler handles the EligibleInternshipsQuery.
type EligibleInternshipsHandler struct {
	deps Deps
}

// NewEligibleInternshipsHandler creates a new EligibleInternshipsHandler.
func NewEligibleInternshipsHandler(deps Deps) *EligibleInternshipsHandler {
	return &EligibleInternshipsHandler{deps: deps.withDefaults()}
}

// Handle resolves eligibility.
func (h *EligibleInternshipsHandler) Handle(ctx context.Context, q EligibleInternshipsQuery) (*EligibleInternshipsResult, error) {
	const op = "eligible_internships"
	d := h.deps

	if err := q.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	student, err := d.requireRole(ctx, q.StudentID, user.RoleStudent)
	if err != nil {
		return nil, d.fail(op, err)
	}

	day := d.today()
	if !q.On.IsZero() {
		day = timeutil.DateOf(q.On)
	}

	items, err := d.eligible(ctx, student, day, q.Filter)
	if err != nil {
		return nil, d.fail(op, err)
	}

	return &EligibleInternshipsResult{
		StudentID:   student.ID,
		Date:        timeutil.FormatDate(day),
		Internships: internshipDTOs(items),
	}, nil
}

// eligible narrows approved postings by the filter and then by the
// eligibility predicate, sorted by title.
func (d Deps) eligible(ctx context.Context, student *user.User, day time.Time, f *internship.Filter) ([]*internship.Internship, error) {
	if f != nil && f.Status != nil && *f.Status != internship.StatusApproved {
		return []*internship.Internship{}, nil
	}
	base := internship.NewFilter()
	if f != nil {
		base = *f
	}
	base = base.WithStatus(internship.StatusApproved)

	candidates, err := d.Internships.Filter(ctx, base)
	if err != nil {
		return nil, err
	}

	out := make([]*internship.Internship, 0, len(candidates))
	for _, i := range candidates {
		if IsEligible(i, student, day, d.SeniorYear) {
			out = append(out, i)
		}
	}
	internship.SortByTitle(out)
	return out, nil
}

// IsEligible reports whether student may see and apply to i on day.
func IsEligible(i *internship.Internship, student *user.User, day time.Time, seniorYear int) bool {
	if i == nil || student == nil || !student.IsStudent() {
		return false
	}
	if i.Status != internship.StatusApproved || !i.Visible {
		return false
	}
	if !i.IsOpen(day) {
		return false
	}
	if !i.Major.Equals(student.Student.Major) {
		return false
	}
	return student.CanSeeLevel(string(i.Level), seniorYear)
}
