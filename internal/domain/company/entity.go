// Package company contains the Company entity. Companies are keyed by name,
// compared without regard to case, and are created lazily the first time a
// representative registers under a name.
package company

import (
	"strings"
	"time"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// Company is an employer posting internships.
type Company struct {
	Name      string
	CreatedAt time.Time
}

// New creates a company.
func New(name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("company", "Create", shared.ErrInvalidInput, "company name is required")
	}
	return &Company{Name: name, CreatedAt: time.Now().UTC()}, nil
}

// Key is the case-insensitive identity of the company.
func (c *Company) Key() string {
	return NormalizeName(c.Name)
}

// NormalizeName folds a company name into its key form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
