package user

import (
	"context"
)

// Repository stores users of every role.
type Repository interface {
	// FindByID returns shared.ErrUserNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByLoginID resolves the sign-in identifier (student id or email),
	// ignoring case.
	FindByLoginID(ctx context.Context, loginID string) (*User, error)

	// Exists reports whether a user id or login id is taken.
	Exists(ctx context.Context, idOrLoginID string) (bool, error)

	// Save inserts or replaces the user.
	Save(ctx context.Context, u *User) error

	// ListByRole returns users of one role ordered by id.
	ListByRole(ctx context.Context, role Role) ([]*User, error)
}
