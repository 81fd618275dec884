// Package query contains read operations (CQRS - Queries).
// Queries never modify state. Each query is a self-contained use case with
// its own request and response types; responses are DTOs ready for a view.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// DefaultSeniorYear is the first year of study allowed to see every level.
const DefaultSeniorYear = 3

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Deps bundles the read-side collaborators.
type Deps struct {
	Internships  internship.Repository
	Applications application.Repository
	Users        user.Repository
	Companies    company.Repository

	// SeniorYear gates non-BASIC levels. Zero means DefaultSeniorYear.
	SeniorYear int

	// Clock and Location decide "today". Optional.
	Clock    timeutil.Clock
	Location *time.Location

	// Reports caches staff reports for ReportTTL. Optional.
	Reports   ReportCache
	ReportTTL time.Duration

	Logger *slog.Logger
}

// ReportCache stores rendered reports as JSON.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

func (d Deps) withDefaults() Deps {
	if d.SeniorYear <= 0 {
		d.SeniorYear = DefaultSeniorYear
	}
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ReportTTL <= 0 {
		d.ReportTTL = time.Minute
	}
	return d
}

func (d Deps) today() time.Time {
	return timeutil.Today(d.Clock, d.Location)
}

func (d Deps) requireRole(ctx context.Context, id string, role user.Role) (*user.User, error) {
	u, err := d.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, shared.ErrWrongRole
	}
	return u, nil
}

// fail wraps infrastructure errors with the query name; domain errors pass
// through.
func (d Deps) fail(op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		d.Logger.Debug("query rejected", "op", op, "kind", shared.KindOf(err), "error", err)
		return err
	}
	d.Logger.Error("query failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(op string, q interface{}) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return shared.WrapError("query", op, shared.ErrValidation,
			"invalid "+strings.Join(fields, ", "), err)
	}
	return shared.WrapError("query", op, shared.ErrValidation, "invalid query", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// InternshipDTO is a posting as shown in listings.
type InternshipDTO struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Level            string `json:"level"`
	Major            string `json:"major"`
	OpenDate         string `json:"open_date"`
	CloseDate        string `json:"close_date"`
	Status           string `json:"status"`
	CompanyName      string `json:"company_name"`
	RepresentativeID string `json:"representative_id"`
	MaxSlots         int    `json:"max_slots"`
	ConfirmedSlots   int    `json:"confirmed_slots"`
	RemainingSlots   int    `json:"remaining_slots"`
	Visible          bool   `json:"visible"`
}

// NewInternshipDTO converts a posting.
func NewInternshipDTO(i *internship.Internship) InternshipDTO {
	return InternshipDTO{
		ID:               i.ID,
		Title:            i.Title,
		Description:      i.Description,
		Level:            string(i.Level),
		Major:            i.Major.String(),
		OpenDate:         timeutil.FormatDate(i.Window.Open),
		CloseDate:        timeutil.FormatDate(i.Window.Close),
		Status:           string(i.Status),
		CompanyName:      i.CompanyName,
		RepresentativeID: i.RepresentativeID,
		MaxSlots:         i.MaxSlots,
		ConfirmedSlots:   i.ConfirmedSlots,
		RemainingSlots:   i.RemainingSlots(),
		Visible:          i.Visible,
	}
}

func internshipDTOs(items []*internship.Internship) []InternshipDTO {
	out := make([]InternshipDTO, 0, len(items))
	for _, i := range items {
		out = append(out, NewInternshipDTO(i))
	}
	return out
}

// ApplicationDTO is an application joined with its posting's title.
type ApplicationDTO struct {
	ID                  string    `json:"id"`
	StudentID           string    `json:"student_id"`
	InternshipID        string    `json:"internship_id"`
	InternshipTitle     string    `json:"internship_title,omitempty"`
	CompanyName         string    `json:"company_name,omitempty"`
	Status              string    `json:"status"`
	StudentAccepted     bool      `json:"student_accepted"`
	WithdrawalRequested bool      `json:"withdrawal_requested"`
	CreatedAt           time.Time `json:"created_at"`
}

// applicationDTOs joins applications with their postings. A posting that
// no longer exists leaves the title empty.
func (d Deps) applicationDTOs(ctx context.Context, apps []*application.Application) ([]ApplicationDTO, error) {
	titles := make(map[string]*internship.Internship)
	out := make([]ApplicationDTO, 0, len(apps))
	for _, a := range apps {
		i, seen := titles[a.InternshipID]
		if !seen {
			found, err := d.Internships.FindByID(ctx, a.InternshipID)
			if err != nil && !shared.IsNotFound(err) {
				return nil, err
			}
			i = found
			titles[a.InternshipID] = found
		}

		dto := ApplicationDTO{
			ID:                  a.ID,
			StudentID:           a.StudentID,
			InternshipID:        a.InternshipID,
			Status:              string(a.Status),
			StudentAccepted:     a.StudentAccepted,
			WithdrawalRequested: a.WithdrawalRequested,
			CreatedAt:           a.CreatedAt,
		}
		if i != nil {
			dto.InternshipTitle = i.Title
			dto.CompanyName = i.CompanyName
		}
		out = append(out, dto)
	}
	return out, nil
}

// UserDTO is an account without credentials.
type UserDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name,omitempty"`
	Department  string `json:"department,omitempty"`
	Position    string `json:"position,omitempty"`
	Approved    bool   `json:"approved,omitempty"`
}

// NewUserDTO converts a user, dropping the password.
func NewUserDTO(u *user.User) UserDTO {
	dto := UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
	switch u.Role {
	case user.RoleRepresentative:
		if u.Representative != nil {
			dto.CompanyName = u.Representative.CompanyName
			dto.Department = u.Representative.Department
			dto.Position = u.Representative.Position
			dto.Approved = u.Representative.Approved
		}
	case user.RoleStaff:
		if u.Staff != nil {
			dto.Department = u.Staff.Department
		}
	case user.RoleStudent:
	}
	return dto
}
