// Package application contains the InternshipApplication aggregate and its
// state machine:
//
//	PENDING ──approve──▶ SUCCESSFUL ──accept──▶ (studentAccepted)
//	   │                     │
//	   ├──reject──▶ UNSUCCESSFUL
//	   │                     │
//	   └──withdrawal confirmed──▶ WITHDRAWN ◀──┘
//
// Withdrawal is two-phase: the student raises a request flag and staff
// either confirm it or turn it down.
package application

import (
	"strings"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the outcome state of an application.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusSuccessful   Status = "SUCCESSFUL"
	StatusUnsuccessful Status = "UNSUCCESSFUL"
	StatusWithdrawn    Status = "WITHDRAWN"
)

// IsValid checks that the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusUnsuccessful, StatusWithdrawn:
		return true
	}
	return false
}

// IsTerminal reports whether no further review can happen.
func (s Status) IsTerminal() bool {
	return s == StatusUnsuccessful || s == StatusWithdrawn
}

// ParseStatus accepts any casing.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("application", "ParseStatus", shared.ErrInvalidInput, "invalid application status")
	}
	return st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Application links one student to one internship.
type Application struct {
	ID           string
	StudentID    string
	InternshipID string
	Status       Status

	// StudentAccepted may only become true from SUCCESSFUL and never reverts.
	StudentAccepted bool

	// WithdrawalRequested is pending staff resolution.
	WithdrawalRequested bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a PENDING application.
func New(id, studentID, internshipID string) (*Application, error) {
	if id == "" || studentID == "" || internshipID == "" {
		return nil, shared.NewDomainError("application", "Create", shared.ErrInvalidID, "id, student id and internship id are required")
	}
	now := time.Now().UTC()
	return &Application{
		ID:           id,
		StudentID:    studentID,
		InternshipID: internshipID,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsActive reports whether the application counts toward the active limit:
// PENDING, or SUCCESSFUL but not yet accepted.
func (a *Application) IsActive() bool {
	return a.Status == StatusPending || (a.Status == StatusSuccessful && !a.StudentAccepted)
}

// IsOwnedBy reports whether the application belongs to the student.
func (a *Application) IsOwnedBy(studentID string) bool {
	return a.StudentID == studentID
}

// Approve marks a pending application successful.
func (a *Application) Approve() error {
	if a.Status != StatusPending {
		return shared.ErrApplicationNotPending
	}
	a.Status = StatusSuccessful
	a.touch()
	return nil
}

// Reject marks a pending application unsuccessful.
func (a *Application) Reject() error {
	if a.Status != StatusPending {
		return shared.ErrApplicationNotPending
	}
	a.Status = StatusUnsuccessful
	a.touch()
	return nil
}

// Accept records the student's acceptance of a successful offer.
func (a *Application) Accept() error {
	if a.Status != StatusSuccessful {
		return shared.ErrApplicationNotSuccessful
	}
	if a.StudentAccepted {
		return shared.ErrApplicationAlreadyDecided
	}
	a.StudentAccepted = true
	a.touch()
	return nil
}

// RequestWithdrawal raises the request flag; the status is unchanged until
// staff resolve it.
func (a *Application) RequestWithdrawal() error {
	if a.Status.IsTerminal() {
		return shared.ErrApplicationAlreadyClosed
	}
	a.WithdrawalRequested = true
	a.touch()
	return nil
}

// ConfirmWithdrawal resolves a request by withdrawing the application.
func (a *Application) ConfirmWithdrawal() error {
	if !a.WithdrawalRequested {
		return shared.ErrNoWithdrawalRequested
	}
	a.Status = StatusWithdrawn
	a.WithdrawalRequested = false
	a.touch()
	return nil
}

// DenyWithdrawal turns a request down. With resetToPending the application
// returns to PENDING, discarding an earlier approval; otherwise only the
// flag is cleared.
func (a *Application) DenyWithdrawal(resetToPending bool) error {
	if !a.WithdrawalRequested {
		return shared.ErrNoWithdrawalRequested
	}
	if resetToPending {
		a.Status = StatusPending
	}
	a.WithdrawalRequested = false
	a.touch()
	return nil
}

// ForceWithdraw withdraws regardless of prior status. Used when the student
// accepts another placement.
func (a *Application) ForceWithdraw() {
	a.Status = StatusWithdrawn
	a.WithdrawalRequested = false
	a.touch()
}

// Clone returns an independent copy.
func (a *Application) Clone() *Application {
	c := *a
	return &c
}

func (a *Application) touch() {
	a.UpdatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// COLLECTION HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// CountActive counts active applications.
func CountActive(apps []*Application) int {
	n := 0
	for _, a := range apps {
		if a.IsActive() {
			n++
		}
	}
	return n
}

// HasAccepted reports whether any application, other than excludeID, was accepted.
func HasAccepted(apps []*Application, excludeID string) bool {
	for _, a := range apps {
		if a.ID != excludeID && a.StudentAccepted {
			return true
		}
	}
	return false
}

// FindForInternship returns the application for an internship, or nil.
func FindForInternship(apps []*Application, internshipID string) *Application {
	for _, a := range apps {
		if a.InternshipID == internshipID {
			return a
		}
	}
	return nil
}
