package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// One table for every role; profile columns of other roles are NULL.
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `
	id, name, email, password_hash, logged_in, role,
	year_of_study, major, department, company_name, position, approved`

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`+forUpdate(ctx), id)
}

// FindByLoginID resolves a student id or email, ignoring case.
func (r *UserRepository) FindByLoginID(ctx context.Context, loginID string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE login_id = $1`, loginKey(loginID))
}

// Exists reports whether the value is taken as a user id or login id.
func (r *UserRepository) Exists(ctx context.Context, idOrLoginID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 OR login_id = $2)`,
		idOrLoginID, loginKey(idOrLoginID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// Save inserts or replaces the user. A login id held by another user is
// rejected with shared.ErrUserAlreadyExists.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	var (
		year                         *int
		major, department            *string
		companyKey, companyName, pos *string
		approved                     *bool
	)
	switch u.Role {
	case user.RoleStudent:
		y, m := u.Student.YearOfStudy, u.Student.Major.String()
		year, major = &y, &m
	case user.RoleStaff:
		department = &u.Staff.Department
	case user.RoleRepresentative:
		p := u.Representative
		key := company.NormalizeName(p.CompanyName)
		companyKey, companyName, department, pos, approved = &key, &p.CompanyName, &p.Department, &p.Position, &p.Approved
	}

	query := `
		INSERT INTO users (
			id, login_id, name, email, password_hash, logged_in, role,
			year_of_study, major, department, company_key, company_name, position, approved
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			login_id = EXCLUDED.login_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			logged_in = EXCLUDED.logged_in,
			year_of_study = EXCLUDED.year_of_study,
			major = EXCLUDED.major,
			department = EXCLUDED.department,
			company_key = EXCLUDED.company_key,
			company_name = EXCLUDED.company_name,
			position = EXCLUDED.position,
			approved = EXCLUDED.approved,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID, loginKey(u.LoginID()), u.Name, u.Email, u.PasswordHash, u.LoggedIn, string(u.Role),
		year, major, department, companyKey, companyName, pos, approved,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ListByRole returns users of one role ordered by id.
func (r *UserRepository) ListByRole(ctx context.Context, role user.Role) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) one(ctx context.Context, query string, arg string) (*user.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, query, arg))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u                                   user.User
		role                                string
		year                                *int
		major, department, companyName, pos *string
		approved                            *bool
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.LoggedIn, &role,
		&year, &major, &department, &companyName, &pos, &approved,
	)
	if err != nil {
		return nil, err
	}

	u.Role = user.Role(role)
	switch u.Role {
	case user.RoleStudent:
		u.Student = &user.StudentProfile{YearOfStudy: deref(year), Major: shared.Major(deref(major))}
	case user.RoleStaff:
		u.Staff = &user.StaffProfile{Department: deref(department)}
	case user.RoleRepresentative:
		u.Representative = &user.RepresentativeProfile{
			CompanyName: deref(companyName),
			Department:  deref(department),
			Position:    deref(pos),
			Approved:    deref(approved),
		}
	default:
		return nil, shared.ErrInvalidRole
	}
	return &u, nil
}

func loginKey(loginID string) string {
	return strings.ToLower(strings.TrimSpace(loginID))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
