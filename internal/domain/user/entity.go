// Package user models the three kinds of account in the placement system.
// A User is a tagged union: Role selects which profile pointer is set, and
// role-specific behaviour is dispatched with an exhaustive switch on Role.
package user

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// PasswordCost is the bcrypt cost used for new password hashes.
var PasswordCost = bcrypt.DefaultCost

// Role discriminates the user variant.
type Role string

const (
	RoleStudent        Role = "student"
	RoleStaff          Role = "staff"
	RoleRepresentative Role = "representative"
)

// IsValid checks that the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleRepresentative:
		return true
	}
	return false
}

// StudentProfile holds student-only data.
type StudentProfile struct {
	YearOfStudy int
	Major       shared.Major
}

// StaffProfile holds staff-only data.
type StaffProfile struct {
	Department string
}

// RepresentativeProfile holds company-representative data.
type RepresentativeProfile struct {
	CompanyName string
	Department  string
	Position    string
	// Approved is the staff-controlled gate.
	Approved bool
}

// User is an account. Exactly one profile is set, matching Role.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role

	// PasswordHash is a bcrypt hash; the plaintext is never stored.
	PasswordHash string
	LoggedIn     bool

	Student        *StudentProfile
	Staff          *StaffProfile
	Representative *RepresentativeProfile
}

// NewStudent creates a student account. The login id is the user id.
func NewStudent(id, name, email, password string, yearOfStudy int, major string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrInvalidID, "student id is required")
	}
	if yearOfStudy < 1 {
		return nil, shared.NewDomainError("user", "Create", shared.ErrValueOutOfRange, "year of study must be positive")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           strings.TrimSpace(id),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleStudent,
		Student:      &StudentProfile{YearOfStudy: yearOfStudy, Major: shared.Major(strings.TrimSpace(major))},
	}, nil
}

// NewStaff creates a staff account. The login id is the email.
func NewStaff(id, name, email, password, department string) (*User, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(email) == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrInvalidID, "staff id and email are required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           strings.TrimSpace(id),
		Name:         name,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         RoleStaff,
		Staff:        &StaffProfile{Department: department},
	}, nil
}

// NewRepresentative creates an unapproved representative. The user id and
// login id are both the email.
func NewRepresentative(name, email, password, companyName, department, position string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrInvalidID, "email is required")
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, shared.NewDomainError("user", "Create", shared.ErrInvalidInput, "company name is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           email,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleRepresentative,
		Representative: &RepresentativeProfile{
			CompanyName: strings.TrimSpace(companyName),
			Department:  department,
			Position:    position,
		},
	}, nil
}

// LoginID returns the identifier the user signs in with.
func (u *User) LoginID() string {
	switch u.Role {
	case RoleStudent:
		return u.ID
	case RoleStaff, RoleRepresentative:
		return u.Email
	default:
		return u.ID
	}
}

// Validate checks the tagged-union invariant.
func (u *User) Validate() error {
	var ok bool
	switch u.Role {
	case RoleStudent:
		ok = u.Student != nil && u.Staff == nil && u.Representative == nil
	case RoleStaff:
		ok = u.Staff != nil && u.Student == nil && u.Representative == nil
	case RoleRepresentative:
		ok = u.Representative != nil && u.Student == nil && u.Staff == nil
	default:
		return shared.ErrInvalidRole
	}
	if !ok {
		return shared.NewDomainError("user", "Validate", shared.ErrInvalidInput, "profile does not match role")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Role checks
// ─────────────────────────────────────────────────────────────────────────────

// IsStudent reports whether the user is a student.
func (u *User) IsStudent() bool { return u.Role == RoleStudent && u.Student != nil }

// IsStaff reports whether the user is staff.
func (u *User) IsStaff() bool { return u.Role == RoleStaff && u.Staff != nil }

// IsRepresentative reports whether the user is a company representative.
func (u *User) IsRepresentative() bool {
	return u.Role == RoleRepresentative && u.Representative != nil
}

// IsApprovedRepresentative reports whether the representative passed review.
func (u *User) IsApprovedRepresentative() bool {
	return u.IsRepresentative() && u.Representative.Approved
}

// CanSeeLevel applies the seniority gate: students below seniorYear see only
// BASIC postings. The level is passed as a string to keep this package free
// of the internship domain.
func (u *User) CanSeeLevel(level string, seniorYear int) bool {
	if !u.IsStudent() {
		return false
	}
	if u.Student.YearOfStudy >= seniorYear {
		return true
	}
	return strings.EqualFold(level, "BASIC")
}

// ─────────────────────────────────────────────────────────────────────────────
// Session and credentials
// ─────────────────────────────────────────────────────────────────────────────

// CheckPassword compares a plaintext password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Login marks the session active after verifying the password.
func (u *User) Login(password string) error {
	if !u.CheckPassword(password) {
		return shared.ErrInvalidCredentials
	}
	u.LoggedIn = true
	return nil
}

// Logout ends the session.
func (u *User) Logout() {
	u.LoggedIn = false
}

// ChangePassword requires an active session and the current password.
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.LoggedIn {
		return shared.ErrNotLoggedIn
	}
	if !u.CheckPassword(oldPassword) {
		return shared.ErrInvalidCredentials
	}
	if strings.TrimSpace(newPassword) == "" {
		return shared.NewDomainError("user", "ChangePassword", shared.ErrInvalidInput, "new password cannot be blank")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", shared.WrapError("user", "HashPassword", shared.ErrInvalidInput, "password cannot be hashed", err)
	}
	return string(hash), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Representative review
// ─────────────────────────────────────────────────────────────────────────────

// SetApproval opens or closes the representative gate.
func (u *User) SetApproval(approved bool) error {
	if !u.IsRepresentative() {
		return shared.ErrWrongRole
	}
	u.Representative.Approved = approved
	return nil
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	if u.Student != nil {
		s := *u.Student
		c.Student = &s
	}
	if u.Staff != nil {
		s := *u.Staff
		c.Staff = &s
	}
	if u.Representative != nil {
		r := *u.Representative
		c.Representative = &r
	}
	return &c
}
