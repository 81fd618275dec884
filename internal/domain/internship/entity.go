// Package internship contains the Internship aggregate: a posting published
// by a company representative, reviewed by staff, and filled by student
// acceptances.
package internship

import (
	"strings"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// DefaultMaxSlots is the upper bound on slots per posting.
const DefaultMaxSlots = 10

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// Level is the seniority of the posting.
type Level string

const (
	LevelBasic        Level = "BASIC"
	LevelIntermediate Level = "INTERMEDIATE"
	LevelAdvanced     Level = "ADVANCED"
)

// IsValid checks that the level is known.
func (l Level) IsValid() bool {
	switch l {
	case LevelBasic, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ParseLevel accepts any casing.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", shared.ErrInvalidInternshipLevel
	}
	return l, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the review state of the posting.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusFilled   Status = "FILLED"
)

// IsValid checks that the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFilled:
		return true
	}
	return false
}

// ParseStatus accepts any casing.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("internship", "ParseStatus", shared.ErrInvalidInput, "invalid internship status")
	}
	return st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Internship is a posting. Relations to the representative and company are
// held as ids and resolved through repositories.
type Internship struct {
	ID          string
	Title       string
	Description string
	Level       Level
	Major       shared.Major

	// Window is the application period; both days are inclusive.
	Window shared.DateWindow

	Status Status

	// RepresentativeID is the owning representative's user id.
	RepresentativeID string

	// CompanyName is the owning company's key.
	CompanyName string

	MaxSlots       int
	ConfirmedSlots int
	Visible        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInternshipParams holds the fields supplied by a representative.
type NewInternshipParams struct {
	ID               string
	Title            string
	Description      string
	Level            Level
	Major            string
	OpenDate         time.Time
	CloseDate        time.Time
	RepresentativeID string
	CompanyName      string
	MaxSlots         int
	SlotLimit        int
	Visible          bool
}

// NewInternship creates a PENDING posting. MaxSlots is clamped to
// [1, SlotLimit]; a zero SlotLimit means DefaultMaxSlots.
func NewInternship(p NewInternshipParams) (*Internship, error) {
	if p.ID == "" {
		return nil, shared.NewDomainError("internship", "Create", shared.ErrInvalidID, "id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, shared.NewDomainError("internship", "Create", shared.ErrInvalidInput, "title is required")
	}
	if !p.Level.IsValid() {
		return nil, shared.ErrInvalidInternshipLevel
	}
	if p.RepresentativeID == "" {
		return nil, shared.NewDomainError("internship", "Create", shared.ErrInvalidID, "representative id is required")
	}
	window, err := shared.NewDateWindow(p.OpenDate, p.CloseDate)
	if err != nil {
		return nil, err
	}

	limit := p.SlotLimit
	if limit <= 0 {
		limit = DefaultMaxSlots
	}

	now := time.Now().UTC()
	return &Internship{
		ID:               p.ID,
		Title:            strings.TrimSpace(p.Title),
		Description:      p.Description,
		Level:            p.Level,
		Major:            shared.Major(strings.TrimSpace(p.Major)),
		Window:           window,
		Status:           StatusPending,
		RepresentativeID: p.RepresentativeID,
		CompanyName:      p.CompanyName,
		MaxSlots:         shared.ClampSlots(p.MaxSlots, limit),
		ConfirmedSlots:   0,
		Visible:          p.Visible,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsOpen reports whether applications are accepted on the given day.
func (i *Internship) IsOpen(day time.Time) bool {
	return i.Window.Contains(day)
}

// RemainingSlots returns the unconfirmed capacity.
func (i *Internship) RemainingSlots() int {
	return i.MaxSlots - i.ConfirmedSlots
}

// IsFull reports whether every slot is confirmed.
func (i *Internship) IsFull() bool {
	return i.ConfirmedSlots >= i.MaxSlots
}

// IsOwnedBy compares representative ids ignoring case.
func (i *Internship) IsOwnedBy(repID string) bool {
	return strings.EqualFold(i.RepresentativeID, repID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Staff review
// ─────────────────────────────────────────────────────────────────────────────

// Approve publishes a pending posting.
func (i *Internship) Approve() error {
	if i.Status != StatusPending {
		return shared.ErrInternshipNotPending
	}
	i.Status = StatusApproved
	i.touch()
	return nil
}

// Reject declines a pending posting.
func (i *Internship) Reject() error {
	if i.Status != StatusPending {
		return shared.ErrInternshipNotPending
	}
	i.Status = StatusRejected
	i.touch()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Slot accounting
// ─────────────────────────────────────────────────────────────────────────────

// AddConfirmedSlot consumes one slot. The posting becomes FILLED exactly when
// the last slot is confirmed.
func (i *Internship) AddConfirmedSlot() error {
	if i.IsFull() {
		return shared.ErrInternshipFull
	}
	i.ConfirmedSlots++
	if i.ConfirmedSlots == i.MaxSlots {
		i.Status = StatusFilled
	}
	i.touch()
	return nil
}

// ReleaseConfirmedSlot returns one slot, reopening a FILLED posting.
// Reports whether a slot was released.
func (i *Internship) ReleaseConfirmedSlot() bool {
	if i.ConfirmedSlots == 0 {
		return false
	}
	i.ConfirmedSlots--
	if i.Status == StatusFilled {
		i.Status = StatusApproved
	}
	i.touch()
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Representative edits
// ─────────────────────────────────────────────────────────────────────────────

// Changes carries an edit; nil fields are left untouched.
type Changes struct {
	Title       *string
	Description *string
	Level       *Level
	Major       *string
	OpenDate    *time.Time
	CloseDate   *time.Time
	MaxSlots    *int
}

// Edit applies changes to a PENDING posting. A slot count outside
// (0, slotLimit] is ignored.
func (i *Internship) Edit(c Changes, slotLimit int) error {
	if i.Status != StatusPending {
		return shared.ErrInternshipNotPending
	}
	if slotLimit <= 0 {
		slotLimit = DefaultMaxSlots
	}
	if c.Level != nil && !c.Level.IsValid() {
		return shared.ErrInvalidInternshipLevel
	}

	window := i.Window
	if c.OpenDate != nil {
		window.Open = timeutil.DateOf(*c.OpenDate)
	}
	if c.CloseDate != nil {
		window.Close = timeutil.DateOf(*c.CloseDate)
	}
	if !window.IsValid() {
		return shared.ErrInvalidDateWindow
	}

	if c.Title != nil && strings.TrimSpace(*c.Title) != "" {
		i.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		i.Description = *c.Description
	}
	if c.Level != nil {
		i.Level = *c.Level
	}
	if c.Major != nil && strings.TrimSpace(*c.Major) != "" {
		i.Major = shared.Major(strings.TrimSpace(*c.Major))
	}
	i.Window = window
	if c.MaxSlots != nil && *c.MaxSlots > 0 && *c.MaxSlots <= slotLimit {
		i.MaxSlots = *c.MaxSlots
	}
	i.touch()
	return nil
}

// SetVisibility shows or hides the posting from students.
func (i *Internship) SetVisibility(visible bool) {
	i.Visible = visible
	i.touch()
}

// CanDelete reports whether the posting may be removed.
func (i *Internship) CanDelete() error {
	if i.Status != StatusPending {
		return shared.ErrInternshipNotPending
	}
	return nil
}

// Clone returns an independent copy.
func (i *Internship) Clone() *Internship {
	c := *i
	return &c
}

func (i *Internship) touch() {
	i.UpdatedAt = time.Now().UTC()
}
