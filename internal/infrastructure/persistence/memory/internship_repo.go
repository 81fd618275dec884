package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// InternshipRepository implements internship.Repository.
type InternshipRepository struct {
	mu    sync.RWMutex
	items map[string]*internship.Internship
}

// NewInternshipRepository creates an empty repository.
func NewInternshipRepository() *InternshipRepository {
	return &InternshipRepository{items: make(map[string]*internship.Internship)}
}

// FindByID returns a copy of the internship.
func (r *InternshipRepository) FindByID(_ context.Context, id string) (*internship.Internship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.items[id]
	if !ok {
		return nil, shared.ErrInternshipNotFound
	}
	return i.Clone(), nil
}

// FindAll returns every internship, oldest first.
func (r *InternshipRepository) FindAll(_ context.Context) ([]*internship.Internship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(*internship.Internship) bool { return true }), nil
}

// FindByStatus returns internships in the given status.
func (r *InternshipRepository) FindByStatus(_ context.Context, status internship.Status) ([]*internship.Internship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(i *internship.Internship) bool { return i.Status == status }), nil
}

// Filter returns internships matching f.
func (r *InternshipRepository) Filter(_ context.Context, f internship.Filter) ([]*internship.Internship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(f.Matches), nil
}

// Save inserts or replaces the internship.
func (r *InternshipRepository) Save(_ context.Context, i *internship.Internship) error {
	if i == nil || i.ID == "" {
		return shared.NewDomainError("internship", "Save", shared.ErrInvalidID, "internship id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[i.ID] = i.Clone()
	return nil
}

// Delete removes the internship.
func (r *InternshipRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return shared.ErrInternshipNotFound
	}
	delete(r.items, id)
	return nil
}

// snapshot copies matching items ordered by creation time then id.
// Callers hold the read lock.
func (r *InternshipRepository) snapshot(keep func(*internship.Internship) bool) []*internship.Internship {
	out := make([]*internship.Internship, 0, len(r.items))
	for _, i := range r.items {
		if keep(i) {
			out = append(out, i.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}
