package shared

import (
	"context"
	"sort"
)

// Lock key prefixes for the entities a lifecycle operation touches.
const (
	LockPrefixStudent     = "student:"
	LockPrefixInternship  = "internship:"
	LockPrefixApplication = "application:"
	LockPrefixUser        = "user:"
)

// Locker grants exclusive access to a set of keys. Implementations must
// acquire keys in a deterministic order so overlapping sets cannot deadlock.
// The returned unlock func releases every key and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Transactor runs fn so that every repository write made with the passed
// context commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockKeys builds the lock set for a (student, internship, application)
// triple. Empty ids are skipped; the result is sorted and de-duplicated.
func LockKeys(studentID, internshipID, applicationID string) []string {
	keys := make([]string, 0, 3)
	if studentID != "" {
		keys = append(keys, LockPrefixStudent+studentID)
	}
	if internshipID != "" {
		keys = append(keys, LockPrefixInternship+internshipID)
	}
	if applicationID != "" {
		keys = append(keys, LockPrefixApplication+applicationID)
	}
	return NormalizeKeys(keys)
}

// NormalizeKeys sorts keys and removes duplicates and blanks.
func NormalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
