package postgres

import (
	"context"
	"fmt"

	"github.com/campus-careers/placement-hub/internal/domain/company"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// CompanyRepository implements company.Repository for PostgreSQL.
type CompanyRepository struct {
	conn *Connection
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(conn *Connection) *CompanyRepository {
	return &CompanyRepository{conn: conn}
}

// FindByName matches ignoring case.
func (r *CompanyRepository) FindByName(ctx context.Context, name string) (*company.Company, error) {
	var c company.Company
	err := r.conn.QueryRow(ctx,
		`SELECT name, created_at FROM companies WHERE key = $1`, company.NormalizeName(name),
	).Scan(&c.Name, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// Save inserts the company; an existing company with the same key is kept.
func (r *CompanyRepository) Save(ctx context.Context, c *company.Company) error {
	_, err := r.conn.Exec(ctx,
		`INSERT INTO companies (key, name, created_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`,
		c.Key(), c.Name, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

// FindAll returns companies ordered by name.
func (r *CompanyRepository) FindAll(ctx context.Context) ([]*company.Company, error) {
	rows, err := r.conn.Query(ctx, `SELECT name, created_at FROM companies ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	out := make([]*company.Company, 0)
	for rows.Next() {
		var c company.Company
		if err := rows.Scan(&c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
