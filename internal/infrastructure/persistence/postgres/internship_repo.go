package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERNSHIP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// InternshipRepository implements internship.Repository for PostgreSQL.
type InternshipRepository struct {
	conn *Connection
}

// NewInternshipRepository creates a new InternshipRepository.
func NewInternshipRepository(conn *Connection) *InternshipRepository {
	return &InternshipRepository{conn: conn}
}

const internshipColumns = `
	id, title, description, level, major, open_date, close_date, status,
	representative_id, company_name, max_slots, confirmed_slots, visible,
	created_at, updated_at`

// FindByID returns an internship by id, locking the row inside a
// transaction.
func (r *InternshipRepository) FindByID(ctx context.Context, id string) (*internship.Internship, error) {
	query := `SELECT ` + internshipColumns + ` FROM internships WHERE id = $1` + forUpdate(ctx)

	i, err := scanInternship(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInternshipNotFound
		}
		return nil, fmt.Errorf("failed to get internship: %w", err)
	}
	return i, nil
}

// FindAll returns every internship ordered by creation.
func (r *InternshipRepository) FindAll(ctx context.Context) ([]*internship.Internship, error) {
	return r.list(ctx, `SELECT `+internshipColumns+` FROM internships ORDER BY created_at, id`)
}

// FindByStatus returns internships in the given status.
func (r *InternshipRepository) FindByStatus(ctx context.Context, status internship.Status) ([]*internship.Internship, error) {
	return r.list(ctx,
		`SELECT `+internshipColumns+` FROM internships WHERE status = $1 ORDER BY created_at, id`,
		string(status))
}

// Filter returns internships matching every set criterion.
func (r *InternshipRepository) Filter(ctx context.Context, f internship.Filter) ([]*internship.Internship, error) {
	where, args := BuildFilter(f)
	query := `SELECT ` + internshipColumns + ` FROM internships` + where + ` ORDER BY created_at, id`
	return r.list(ctx, query, args...)
}

// Save inserts or replaces the internship.
func (r *InternshipRepository) Save(ctx context.Context, i *internship.Internship) error {
	query := `
		INSERT INTO internships (` + internshipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			level = EXCLUDED.level,
			major = EXCLUDED.major,
			open_date = EXCLUDED.open_date,
			close_date = EXCLUDED.close_date,
			status = EXCLUDED.status,
			max_slots = EXCLUDED.max_slots,
			confirmed_slots = EXCLUDED.confirmed_slots,
			visible = EXCLUDED.visible,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		i.ID,
		i.Title,
		i.Description,
		string(i.Level),
		i.Major.String(),
		i.Window.Open,
		i.Window.Close,
		string(i.Status),
		i.RepresentativeID,
		i.CompanyName,
		i.MaxSlots,
		i.ConfirmedSlots,
		i.Visible,
		i.CreatedAt,
		i.UpdatedAt,
	)
	if err != nil {
		if IsCheckViolation(err) {
			return shared.WrapError("internship", "Save", shared.ErrRuleViolation,
				"internship violates "+ConstraintName(err), err)
		}
		return fmt.Errorf("failed to save internship: %w", err)
	}
	return nil
}

// Delete removes the internship.
func (r *InternshipRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM internships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete internship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInternshipNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter translation
// ─────────────────────────────────────────────────────────────────────────────

// BuildFilter translates a filter into a WHERE clause with positional
// arguments. It mirrors internship.Filter.Matches: text fields compare
// ignoring case and the date range is an overlap test.
func BuildFilter(f internship.Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.Major != nil {
		add("lower(trim(major)) = lower(trim($%d))", *f.Major)
	}
	if f.Level != nil {
		add("level = $%d", string(*f.Level))
	}
	if f.CompanyName != nil {
		add("lower(company_name) = lower($%d)", *f.CompanyName)
	}
	if f.RepresentativeID != nil {
		add("lower(representative_id) = lower($%d)", *f.RepresentativeID)
	}
	if f.MinRemainingSlots != nil {
		add("max_slots - confirmed_slots >= $%d", *f.MinRemainingSlots)
	}
	if f.MaxRemainingSlots != nil {
		add("max_slots - confirmed_slots <= $%d", *f.MaxRemainingSlots)
	}
	if f.To != nil {
		add("open_date <= $%d", timeutil.DateOf(*f.To))
	}
	if f.From != nil {
		add("close_date >= $%d", timeutil.DateOf(*f.From))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *InternshipRepository) list(ctx context.Context, query string, args ...interface{}) ([]*internship.Internship, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query internships: %w", err)
	}
	defer rows.Close()

	out := make([]*internship.Internship, 0)
	for rows.Next() {
		i, err := scanInternship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan internship: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func scanInternship(row pgx.Row) (*internship.Internship, error) {
	var (
		i             internship.Internship
		level, status string
		major         string
	)

	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&level,
		&major,
		&i.Window.Open,
		&i.Window.Close,
		&status,
		&i.RepresentativeID,
		&i.CompanyName,
		&i.MaxSlots,
		&i.ConfirmedSlots,
		&i.Visible,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.Level = internship.Level(level)
	i.Status = internship.Status(status)
	i.Major = shared.Major(major)
	i.Window.Open = timeutil.DateOf(i.Window.Open)
	i.Window.Close = timeutil.DateOf(i.Window.Close)
	return &i, nil
}
