package internship

import (
	"sort"
	"strings"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// Filter is a conjunction of optional criteria. A nil field places no
// constraint, so the zero Filter matches every internship.
type Filter struct {
	Status           *Status
	Major            *string // case-insensitive equality
	Level            *Level
	CompanyName      *string // case-insensitive equality
	RepresentativeID *string // case-insensitive equality

	// MinRemainingSlots and MaxRemainingSlots bound MaxSlots-ConfirmedSlots inclusively.
	MinRemainingSlots *int
	MaxRemainingSlots *int

	// From and To select postings whose window overlaps [From, To].
	From *time.Time
	To   *time.Time
}

// NewFilter returns an empty filter.
func NewFilter() Filter {
	return Filter{}
}

// WithStatus restricts to one status.
func (f Filter) WithStatus(s Status) Filter {
	f.Status = &s
	return f
}

// WithMajor restricts to one major.
func (f Filter) WithMajor(major string) Filter {
	f.Major = &major
	return f
}

// WithLevel restricts to one level.
func (f Filter) WithLevel(l Level) Filter {
	f.Level = &l
	return f
}

// WithCompany restricts to one company.
func (f Filter) WithCompany(name string) Filter {
	f.CompanyName = &name
	return f
}

// WithRepresentative restricts to one owner.
func (f Filter) WithRepresentative(repID string) Filter {
	f.RepresentativeID = &repID
	return f
}

// WithRemainingSlots bounds remaining capacity. Pass nil for an open bound.
func (f Filter) WithRemainingSlots(min, max *int) Filter {
	f.MinRemainingSlots = min
	f.MaxRemainingSlots = max
	return f
}

// WithDateRange selects overlapping windows. Pass nil for an open bound.
func (f Filter) WithDateRange(from, to *time.Time) Filter {
	f.From = from
	f.To = to
	return f
}

// IsEmpty reports whether no criterion is set.
func (f Filter) IsEmpty() bool {
	return f.Status == nil && f.Major == nil && f.Level == nil &&
		f.CompanyName == nil && f.RepresentativeID == nil &&
		f.MinRemainingSlots == nil && f.MaxRemainingSlots == nil &&
		f.From == nil && f.To == nil
}

// Matches reports whether i satisfies every set criterion.
func (f Filter) Matches(i *Internship) bool {
	if i == nil {
		return false
	}
	if f.Status != nil && i.Status != *f.Status {
		return false
	}
	if f.Major != nil && !i.Major.Equals(shared.Major(*f.Major)) {
		return false
	}
	if f.Level != nil && i.Level != *f.Level {
		return false
	}
	if f.CompanyName != nil && !strings.EqualFold(i.CompanyName, *f.CompanyName) {
		return false
	}
	if f.RepresentativeID != nil && !strings.EqualFold(i.RepresentativeID, *f.RepresentativeID) {
		return false
	}
	remaining := i.RemainingSlots()
	if f.MinRemainingSlots != nil && remaining < *f.MinRemainingSlots {
		return false
	}
	if f.MaxRemainingSlots != nil && remaining > *f.MaxRemainingSlots {
		return false
	}
	return i.Window.Overlaps(f.From, f.To)
}

// Apply returns the internships that match, preserving input order.
func (f Filter) Apply(items []*Internship) []*Internship {
	out := make([]*Internship, 0, len(items))
	for _, i := range items {
		if f.Matches(i) {
			out = append(out, i)
		}
	}
	return out
}

// SortByTitle orders internships by title, then id for stable output.
func SortByTitle(items []*Internship) {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Title != items[b].Title {
			return items[a].Title < items[b].Title
		}
		return items[a].ID < items[b].ID
	})
}

// SortByRemainingSlotsDesc orders internships by free capacity, largest first.
func SortByRemainingSlotsDesc(items []*Internship) {
	sort.SliceStable(items, func(a, b int) bool {
		ra, rb := items[a].RemainingSlots(), items[b].RemainingSlots()
		if ra != rb {
			return ra > rb
		}
		return items[a].Title < items[b].Title
	})
}
