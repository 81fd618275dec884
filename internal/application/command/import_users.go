package command

import (
	"context"
	"strings"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT USERS COMMAND
// Seeds student and staff accounts from an external roster. Accounts whose id
// or login id already exists are skipped, so re-running an import is safe.
// New accounts get Rules.DefaultPassword.
// ══════════════════════════════════════════════════════════════════════════════

// StudentRecord is one roster row for a student.
type StudentRecord struct {
	ID          string `validate:"required"`
	Name        string `validate:"required"`
	Major       string `validate:"required"`
	YearOfStudy int    `validate:"min=1"`
	Email       string `validate:"omitempty,email"`
}

// StaffRecord is one roster row for a staff member.
type StaffRecord struct {
	ID         string `validate:"required"`
	Name       string `validate:"required"`
	Department string
	Email      string `validate:"required,email"`
}

// ImportUsersCommand carries a roster.
type ImportUsersCommand struct {
	Students []StudentRecord `validate:"dive"`
	Staff    []StaffRecord   `validate:"dive"`
}

// Validate validates the command.
func (c ImportUsersCommand) Validate() error {
	return validateStruct("ImportUsers", c)
}

// ImportUsersResult counts what the import did.
type ImportUsersResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// ImportUsersHandler handles the ImportUsersCommand.
type ImportUsersHandler struct {
	deps Deps
}

// NewImportUsersHandler creates a new ImportUsersHandler.
func NewImportUsersHandler(deps Deps) *ImportUsersHandler {
	return &ImportUsersHandler{deps: deps.withDefaults()}
}

// Handle imports the roster. A malformed row rejects the whole roster before
// anything is written.
func (h *ImportUsersHandler) Handle(ctx context.Context, cmd ImportUsersCommand) (*ImportUsersResult, error) {
	const op = "import_users"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	accounts := make([]*user.User, 0, len(cmd.Students)+len(cmd.Staff))
	for _, r := range cmd.Students {
		u, err := user.NewStudent(r.ID, strings.TrimSpace(r.Name), strings.TrimSpace(r.Email),
			d.Rules.DefaultPassword, r.YearOfStudy, r.Major)
		if err != nil {
			return nil, d.fail(op, err)
		}
		accounts = append(accounts, u)
	}
	for _, r := range cmd.Staff {
		u, err := user.NewStaff(r.ID, strings.TrimSpace(r.Name), r.Email,
			d.Rules.DefaultPassword, strings.TrimSpace(r.Department))
		if err != nil {
			return nil, d.fail(op, err)
		}
		accounts = append(accounts, u)
	}

	result := &ImportUsersResult{}
	for _, u := range accounts {
		created, err := d.importOne(ctx, u)
		if err != nil {
			return result, d.fail(op, err)
		}
		if created {
			result.Created = append(result.Created, u.ID)
		} else {
			result.Skipped = append(result.Skipped, u.ID)
		}
	}

	d.Logger.Info("users imported",
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (d Deps) importOne(ctx context.Context, u *user.User) (bool, error) {
	unlock, err := d.Locker.Lock(ctx,
		shared.LockPrefixUser+strings.ToLower(u.ID),
		shared.LockPrefixUser+strings.ToLower(u.LoginID()),
	)
	if err != nil {
		return false, err
	}
	defer unlock()

	for _, id := range []string{u.ID, u.LoginID()} {
		exists, err := d.Users.Exists(ctx, id)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if err := d.Users.Save(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
