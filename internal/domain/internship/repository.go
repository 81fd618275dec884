package internship

import (
	"context"
)

// Repository stores internships.
type Repository interface {
	// FindByID returns shared.ErrInternshipNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*Internship, error)

	// FindAll returns every internship.
	FindAll(ctx context.Context) ([]*Internship, error)

	// FindByStatus returns internships in the given status.
	FindByStatus(ctx context.Context, status Status) ([]*Internship, error)

	// Filter returns internships matching every set criterion.
	Filter(ctx context.Context, f Filter) ([]*Internship, error)

	// Save inserts or replaces the internship.
	Save(ctx context.Context, i *Internship) error

	// Delete removes the internship; shared.ErrInternshipNotFound if absent.
	Delete(ctx context.Context, id string) error
}
