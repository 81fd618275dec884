package command

import (
	"context"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION COMMANDS
// Plaintext-equivalent credentials. Students sign in with their user id,
// staff and representatives with their email.
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand contains sign-in credentials.
type LoginCommand struct {
	LoginID  string `validate:"required"`
	Password string `validate:"required"`
}

// Validate validates the command.
func (c LoginCommand) Validate() error {
	return validateStruct("Login", c)
}

// LoginResult carries the signed-in user.
type LoginResult struct {
	User *user.User
}

// LoginHandler handles the LoginCommand.
type LoginHandler struct {
	deps Deps
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(deps Deps) *LoginHandler {
	return &LoginHandler{deps: deps.withDefaults()}
}

// Handle signs the user in. Unknown login ids and wrong passwords fail the
// same way.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	const op = "login"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return nil, d.fail(op, err)
	}

	u, err := d.Users.FindByLoginID(ctx, cmd.LoginID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, d.fail(op, shared.ErrInvalidCredentials)
		}
		return nil, d.fail(op, err)
	}

	if err := u.Login(cmd.Password); err != nil {
		return nil, d.fail(op, err)
	}
	if u.IsRepresentative() && !u.Representative.Approved &&
		d.Toggles.Enabled(FeatureRequireRepApproval, u.ID) {
		return nil, d.fail(op, shared.ErrRepresentativeNotApproved)
	}

	if err := d.Users.Save(ctx, u); err != nil {
		return nil, d.fail(op, err)
	}

	d.Logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return &LoginResult{User: u}, nil
}

// LogoutCommand ends a session.
type LogoutCommand struct {
	UserID string `validate:"required"`
}

// Validate validates the command.
func (c LogoutCommand) Validate() error {
	return validateStruct("Logout", c)
}

// LogoutHandler handles the LogoutCommand.
type LogoutHandler struct {
	deps Deps
}

// NewLogoutHandler creates a new LogoutHandler.
func NewLogoutHandler(deps Deps) *LogoutHandler {
	return &LogoutHandler{deps: deps.withDefaults()}
}

// Handle signs the user out. Signing out twice is harmless.
func (h *LogoutHandler) Handle(ctx context.Context, cmd LogoutCommand) error {
	const op = "logout"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return d.fail(op, err)
	}

	u, err := d.Users.FindByID(ctx, cmd.UserID)
	if err != nil {
		return d.fail(op, err)
	}
	if !u.LoggedIn {
		return nil
	}
	u.Logout()
	if err := d.Users.Save(ctx, u); err != nil {
		return d.fail(op, err)
	}

	d.Logger.Info("user logged out", "user_id", u.ID)
	return nil
}

// ChangePasswordCommand replaces the password of a signed-in user.
type ChangePasswordCommand struct {
	UserID      string `validate:"required"`
	OldPassword string `validate:"required"`
	NewPassword string `validate:"required,min=1,nefield=OldPassword"`
}

// Validate validates the command.
func (c ChangePasswordCommand) Validate() error {
	return validateStruct("ChangePassword", c)
}

// ChangePasswordHandler handles the ChangePasswordCommand.
type ChangePasswordHandler struct {
	deps Deps
}

// NewChangePasswordHandler creates a new ChangePasswordHandler.
func NewChangePasswordHandler(deps Deps) *ChangePasswordHandler {
	return &ChangePasswordHandler{deps: deps.withDefaults()}
}

// Handle changes the password.
func (h *ChangePasswordHandler) Handle(ctx context.Context, cmd ChangePasswordCommand) error {
	const op = "change_password"
	d := h.deps

	if err := cmd.Validate(); err != nil {
		return d.fail(op, err)
	}

	u, err := d.Users.FindByID(ctx, cmd.UserID)
	if err != nil {
		return d.fail(op, err)
	}
	if err := u.ChangePassword(cmd.OldPassword, cmd.NewPassword); err != nil {
		return d.fail(op, err)
	}
	if err := d.Users.Save(ctx, u); err != nil {
		return d.fail(op, err)
	}

	d.Logger.Info("password changed", "user_id", u.ID)
	return nil
}
