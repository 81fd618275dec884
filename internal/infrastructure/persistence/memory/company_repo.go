package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// CompanyRepository implements company.Repository.
type CompanyRepository struct {
	mu    sync.RWMutex
	items map[string]*company.Company
}

// NewCompanyRepository creates an empty repository.
func NewCompanyRepository() *CompanyRepository {
	return &CompanyRepository{items: make(map[string]*company.Company)}
}

// FindByName matches ignoring case.
func (r *CompanyRepository) FindByName(_ context.Context, name string) (*company.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[company.NormalizeName(name)]
	if !ok {
		return nil, shared.ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

// Save keeps the first company registered under a key.
func (r *CompanyRepository) Save(_ context.Context, c *company.Company) error {
	if c == nil || c.Key() == "" {
		return shared.NewDomainError("company", "Save", shared.ErrInvalidInput, "company name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.Key()]; ok {
		return nil
	}
	cp := *c
	r.items[c.Key()] = &cp
	return nil
}

// FindAll returns companies ordered by name.
func (r *CompanyRepository) FindAll(_ context.Context) ([]*company.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*company.Company, 0, len(r.items))
	for _, c := range r.items {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}
