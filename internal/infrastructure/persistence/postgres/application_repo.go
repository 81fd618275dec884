package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// Constraint names from migration 003, mapped to domain errors on violation.
const (
	constraintStudentInternship = "applications_student_internship_key"
	constraintOneAccepted       = "applications_one_accepted_key"
)

// ApplicationRepository implements application.Repository for PostgreSQL.
type ApplicationRepository struct {
	conn *Connection
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(conn *Connection) *ApplicationRepository {
	return &ApplicationRepository{conn: conn}
}

const applicationColumns = `
	id, student_id, internship_id, status, student_accepted,
	withdrawal_requested, created_at, updated_at`

// FindByID returns an application by id.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1` + forUpdate(ctx)

	a, err := scanApplication(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

// FindByStudent returns every application of a student, oldest first.
// Inside a transaction the rows are locked.
func (r *ApplicationRepository) FindByStudent(ctx context.Context, studentID string) ([]*application.Application, error) {
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE student_id = $1 ORDER BY created_at, id`+forUpdate(ctx),
		studentID)
}

// FindByInternship returns every application to an internship, oldest first.
func (r *ApplicationRepository) FindByInternship(ctx context.Context, internshipID string) ([]*application.Application, error) {
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE internship_id = $1 ORDER BY created_at, id`,
		internshipID)
}

// FindWithdrawalRequests returns applications awaiting withdrawal review.
func (r *ApplicationRepository) FindWithdrawalRequests(ctx context.Context) ([]*application.Application, error) {
	return r.list(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE withdrawal_requested ORDER BY created_at, id`)
}

// FindAll returns every application.
func (r *ApplicationRepository) FindAll(ctx context.Context) ([]*application.Application, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY created_at, id`)
}

// Save inserts or replaces the application. The student and internship of
// an existing row never change.
func (r *ApplicationRepository) Save(ctx context.Context, a *application.Application) error {
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			student_accepted = EXCLUDED.student_accepted,
			withdrawal_requested = EXCLUDED.withdrawal_requested,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		a.ID,
		a.StudentID,
		a.InternshipID,
		string(a.Status),
		a.StudentAccepted,
		a.WithdrawalRequested,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			switch ConstraintName(err) {
			case constraintStudentInternship:
				return shared.ErrDuplicateApplication
			case constraintOneAccepted:
				return shared.ErrPlacementAlreadyAccepted
			}
		}
		return fmt.Errorf("failed to save application: %w", err)
	}
	return nil
}

// Delete removes the application.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrApplicationNotFound
	}
	return nil
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*application.Application, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	out := make([]*application.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApplication(row pgx.Row) (*application.Application, error) {
	var (
		a      application.Application
		status string
	)
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.InternshipID,
		&status,
		&a.StudentAccepted,
		&a.WithdrawalRequested,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = application.Status(status)
	return &a, nil
}
