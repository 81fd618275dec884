package shared

import (
	"strings"
	"time"

	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Major
// ═══════════════════════════════════════════════════════════════════════════

// Major is a field of study. Comparison ignores case and surrounding space.
type Major string

// Equals reports whether two majors name the same field.
func (m Major) Equals(other Major) bool {
	return strings.EqualFold(strings.TrimSpace(string(m)), strings.TrimSpace(string(other)))
}

// IsValid checks that the major is not blank.
func (m Major) IsValid() bool {
	return strings.TrimSpace(string(m)) != ""
}

// String returns the major as written.
func (m Major) String() string {
	return string(m)
}

// ═══════════════════════════════════════════════════════════════════════════
// DateWindow
// ═══════════════════════════════════════════════════════════════════════════

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	Open  time.Time
	Close time.Time
}

// NewDateWindow normalises both bounds to calendar days and checks ordering.
func NewDateWindow(open, close time.Time) (DateWindow, error) {
	w := DateWindow{Open: timeutil.DateOf(open), Close: timeutil.DateOf(close)}
	if !w.IsValid() {
		return DateWindow{}, ErrInvalidDateWindow
	}
	return w, nil
}

// IsValid checks that close is not before open.
func (w DateWindow) IsValid() bool {
	return !w.Close.Before(w.Open)
}

// Contains reports whether day d falls in the window, bounds inclusive.
func (w DateWindow) Contains(d time.Time) bool {
	return timeutil.Within(d, w.Open, w.Close)
}

// Overlaps reports whether the window shares at least one day with the
// query range [from, to], where a nil bound is unbounded. It excludes
// only windows that end before from or start after to.
func (w DateWindow) Overlaps(from, to *time.Time) bool {
	if to != nil && timeutil.IsAfter(w.Open, *to) {
		return false
	}
	if from != nil && timeutil.IsBefore(w.Close, *from) {
		return false
	}
	return true
}

// ═══════════════════════════════════════════════════════════════════════════
// Slot bounds
// ═══════════════════════════════════════════════════════════════════════════

// ClampSlots bounds a requested slot count to [1, max].
func ClampSlots(requested, max int) int {
	if max < 1 {
		max = 1
	}
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}
