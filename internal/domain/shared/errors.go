// Package shared holds the types every placement domain package depends on:
// errors, events, lock keys and small value objects. It imports nothing
// outside the standard library.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every DomainError carries one, so callers branch with
// errors.Is against these rather than against individual errors.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidState    = errors.New("invalid state")
	ErrRuleViolation   = errors.New("rule violation")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockNotAcquired = errors.New("lock not acquired")
)

// DomainError is a failed domain operation. Domain and Op name where it
// happened; Kind is one of the kinds above.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Domain + "." + e.Op + ": " + e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the cause, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind as well as anything in the cause chain.
func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

// NewDomainError creates an error of the given kind for op in domain.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError is NewDomainError with a cause attached.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Internship domain errors
var (
	ErrInternshipNotFound     = NewDomainError("internship", "Find", ErrNotFound, "internship not found")
	ErrInternshipNotPending   = NewDomainError("internship", "Modify", ErrInvalidState, "internship is no longer pending")
	ErrInternshipNotApproved  = NewDomainError("internship", "CheckStatus", ErrInvalidState, "internship is not approved")
	ErrInternshipFull         = NewDomainError("internship", "ConfirmSlot", ErrRuleViolation, "internship slots are filled")
	ErrInternshipNotOwned     = NewDomainError("internship", "CheckOwner", ErrUnauthorized, "internship belongs to another representative")
	ErrInvalidInternshipLevel = NewDomainError("internship", "Validate", ErrInvalidInput, "invalid internship level")
	ErrInvalidDateWindow      = NewDomainError("internship", "Validate", ErrValueOutOfRange, "close date is before open date")
)

// Application domain errors
var (
	ErrApplicationNotFound       = NewDomainError("application", "Find", ErrNotFound, "application not found")
	ErrApplicationNotPending     = NewDomainError("application", "Review", ErrInvalidState, "only pending applications can be reviewed")
	ErrApplicationNotSuccessful  = NewDomainError("application", "Accept", ErrInvalidState, "only successful applications can be accepted")
	ErrApplicationAlreadyClosed  = NewDomainError("application", "Withdraw", ErrInvalidState, "application is already withdrawn or unsuccessful")
	ErrNoWithdrawalRequested     = NewDomainError("application", "ResolveWithdrawal", ErrInvalidState, "no withdrawal was requested")
	ErrApplicationNotOwned       = NewDomainError("application", "CheckOwner", ErrUnauthorized, "application belongs to another student")
	ErrDuplicateApplication      = NewDomainError("application", "Apply", ErrAlreadyExists, "already applied to this internship")
	ErrActiveApplicationLimit    = NewDomainError("application", "Apply", ErrRuleViolation, "active application limit reached")
	ErrPlacementAlreadyAccepted  = NewDomainError("application", "Accept", ErrRuleViolation, "a placement has already been accepted")
	ErrApplicationAlreadyDecided = NewDomainError("application", "Accept", ErrInvalidState, "application was already accepted")
)

// User domain errors
var (
	ErrUserNotFound                = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists           = NewDomainError("user", "Create", ErrAlreadyExists, "an account with this login already exists")
	ErrInvalidCredentials          = NewDomainError("user", "Login", ErrUnauthorized, "invalid login id or password")
	ErrNotLoggedIn                 = NewDomainError("user", "ChangePassword", ErrUnauthorized, "user is not logged in")
	ErrWrongRole                   = NewDomainError("user", "CheckRole", ErrUnauthorized, "user does not have the required role")
	ErrRepresentativeNotApproved   = NewDomainError("user", "CheckApproval", ErrUnauthorized, "representative is not approved yet")
	ErrInvalidRole                 = NewDomainError("user", "Validate", ErrInvalidInput, "invalid user role")
	ErrRepresentativeAlreadyActive = NewDomainError("user", "Review", ErrInvalidState, "representative is already approved")
)

// Company domain errors
var (
	ErrCompanyNotFound = NewDomainError("company", "Find", ErrNotFound, "company not found")
)

// IsNotFound reports whether err is of the not-found kind.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidState reports whether err rejects a state transition.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsRuleViolation reports whether err breaks a placement rule.
func IsRuleViolation(err error) bool { return errors.Is(err, ErrRuleViolation) }

// kindLabels is checked in order; the first matching kind wins.
var kindLabels = []struct {
	kinds []error
	label string
}{
	{[]error{ErrNotFound}, "NotFound"},
	{[]error{ErrAlreadyExists}, "Duplicate"},
	{[]error{ErrUnauthorized}, "Unauthorized"},
	{[]error{ErrRuleViolation}, "RuleViolation"},
	{[]error{ErrInvalidState}, "InvalidState"},
	{[]error{ErrValidation, ErrInvalidID, ErrInvalidInput, ErrValueOutOfRange}, "Validation"},
	{[]error{ErrLockNotAcquired}, "Busy"},
}

// KindOf returns a stable label for err's kind: "" for nil, "Internal"
// when no kind matches.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindLabels {
		for _, kind := range k.kinds {
			if errors.Is(err, kind) {
				return k.label
			}
		}
	}
	return "Internal"
}
