package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ApplicationRepository implements application.Repository.
type ApplicationRepository struct {
	mu    sync.RWMutex
	items map[string]*application.Application

	// (student, internship) -> application id
	pairs map[pairKey]string
}

type pairKey struct {
	studentID    string
	internshipID string
}

// NewApplicationRepository creates an empty repository.
func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{
		items: make(map[string]*application.Application),
		pairs: make(map[pairKey]string),
	}
}

// FindByID returns a copy of the application.
func (r *ApplicationRepository) FindByID(_ context.Context, id string) (*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, shared.ErrApplicationNotFound
	}
	return a.Clone(), nil
}

// FindByStudent returns the student's applications, oldest first.
func (r *ApplicationRepository) FindByStudent(_ context.Context, studentID string) ([]*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(a *application.Application) bool { return a.StudentID == studentID }), nil
}

// FindByInternship returns applications to the internship, oldest first.
func (r *ApplicationRepository) FindByInternship(_ context.Context, internshipID string) ([]*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(a *application.Application) bool { return a.InternshipID == internshipID }), nil
}

// FindWithdrawalRequests returns applications awaiting withdrawal review.
func (r *ApplicationRepository) FindWithdrawalRequests(_ context.Context) ([]*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(a *application.Application) bool { return a.WithdrawalRequested }), nil
}

// FindAll returns every application.
func (r *ApplicationRepository) FindAll(_ context.Context) ([]*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(*application.Application) bool { return true }), nil
}

// Save inserts or replaces the application. A second application for the
// same (student, internship) pair is rejected.
func (r *ApplicationRepository) Save(_ context.Context, a *application.Application) error {
	if a == nil || a.ID == "" {
		return shared.NewDomainError("application", "Save", shared.ErrInvalidID, "application id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{studentID: a.StudentID, internshipID: a.InternshipID}
	if owner, ok := r.pairs[key]; ok && owner != a.ID {
		return shared.ErrDuplicateApplication
	}
	if prev, ok := r.items[a.ID]; ok {
		delete(r.pairs, pairKey{studentID: prev.StudentID, internshipID: prev.InternshipID})
	}

	r.items[a.ID] = a.Clone()
	r.pairs[key] = a.ID
	return nil
}

// Delete removes the application.
func (r *ApplicationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return shared.ErrApplicationNotFound
	}
	delete(r.pairs, pairKey{studentID: a.StudentID, internshipID: a.InternshipID})
	delete(r.items, id)
	return nil
}

func (r *ApplicationRepository) snapshot(keep func(*application.Application) bool) []*application.Application {
	out := make([]*application.Application, 0)
	for _, a := range r.items {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
