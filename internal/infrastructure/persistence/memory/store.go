// Package memory provides the default in-process stores. Every read and
// write copies the entity so callers never share state with the store.
package memory

import (
	"context"
)

// Store bundles the repositories and concurrency primitives of one
// in-memory data set.
type Store struct {
	Internships  *InternshipRepository
	Applications *ApplicationRepository
	Users        *UserRepository
	Companies    *CompanyRepository
	Locker       *Locker
	Tx           Transactor
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		Internships:  NewInternshipRepository(),
		Applications: NewApplicationRepository(),
		Users:        NewUserRepository(),
		Companies:    NewCompanyRepository(),
		Locker:       NewLocker(),
	}
}

// Transactor runs fn directly. Handlers check every precondition before
// their first write, so a failure cannot leave a partial change behind
// unless a store write itself fails, which the in-memory maps never do.
type Transactor struct{}

// WithinTx implements shared.Transactor.
func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
