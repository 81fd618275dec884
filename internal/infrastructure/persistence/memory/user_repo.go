package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// UserRepository implements user.Repository. Login ids are matched
// ignoring case.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	byLogin map[string]string
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*user.User),
		byLogin: make(map[string]string),
	}
}

// FindByID returns a copy of the user.
func (r *UserRepository) FindByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u.Clone(), nil
}

// FindByLoginID resolves a student id or email.
func (r *UserRepository) FindByLoginID(_ context.Context, loginID string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byLogin[loginKey(loginID)]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return r.byID[id].Clone(), nil
}

// Exists reports whether the value is taken as a user id or login id.
func (r *UserRepository) Exists(_ context.Context, idOrLoginID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.byID[idOrLoginID]; ok {
		return true, nil
	}
	_, ok := r.byLogin[loginKey(idOrLoginID)]
	return ok, nil
}

// Save inserts or replaces the user. A login id already held by another
// user is rejected.
func (r *UserRepository) Save(_ context.Context, u *user.User) error {
	if u == nil {
		return shared.NewDomainError("user", "Save", shared.ErrInvalidID, "user is required")
	}
	if err := u.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := loginKey(u.LoginID())
	if owner, ok := r.byLogin[key]; ok && owner != u.ID {
		return shared.ErrUserAlreadyExists
	}
	if prev, ok := r.byID[u.ID]; ok {
		delete(r.byLogin, loginKey(prev.LoginID()))
	}

	r.byID[u.ID] = u.Clone()
	r.byLogin[key] = u.ID
	return nil
}

// ListByRole returns users of one role ordered by id.
func (r *UserRepository) ListByRole(_ context.Context, role user.Role) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*user.User, 0)
	for _, u := range r.byID {
		if u.Role == role {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func loginKey(loginID string) string {
	return strings.ToLower(strings.TrimSpace(loginID))
}
