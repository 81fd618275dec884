package company

import (
	"context"
)

// Repository stores companies.
type Repository interface {
	// FindByName matches ignoring case; shared.ErrCompanyNotFound if absent.
	FindByName(ctx context.Context, name string) (*Company, error)

	// Save inserts the company or keeps the existing one with the same key.
	Save(ctx context.Context, c *Company) error

	// FindAll returns companies ordered by name.
	FindAll(ctx context.Context) ([]*Company, error)
}
