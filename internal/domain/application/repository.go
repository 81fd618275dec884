package application

import (
	"context"
)

// Repository stores applications. Applications are history and are
// normally never deleted; Delete exists for administrative cleanup.
type Repository interface {
	// FindByID returns shared.ErrApplicationNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*Application, error)

	// FindByStudent returns every application of a student, oldest first.
	FindByStudent(ctx context.Context, studentID string) ([]*Application, error)

	// FindByInternship returns every application to an internship, oldest first.
	FindByInternship(ctx context.Context, internshipID string) ([]*Application, error)

	// FindWithdrawalRequests returns applications awaiting withdrawal review.
	FindWithdrawalRequests(ctx context.Context) ([]*Application, error)

	// FindAll returns every application.
	FindAll(ctx context.Context) ([]*Application, error)

	// Save inserts or replaces the application. Inserting a second
	// application for the same (student, internship) pair returns
	// shared.ErrDuplicateApplication.
	Save(ctx context.Context, a *Application) error

	// Delete removes the application; shared.ErrApplicationNotFound if absent.
	Delete(ctx context.Context, id string) error
}
