package gateway

import (
	"errors"
	"fmt"
)

// Reason names why a request was refused. Reasons are logged and counted;
// callers of Login only ever see a uniform message.
type Reason string

const (
	ReasonUserNotFound     Reason = "user_not_found"
	ReasonPasswordMismatch Reason = "password_mismatch"
	ReasonRoleMismatch     Reason = "role_mismatch"
	ReasonNotFound         Reason = "not_found"
	ReasonNotVerified      Reason = "not_verified"
	ReasonUsernameTaken    Reason = "username_taken"
	ReasonAlreadySetUp     Reason = "already_set_up"
	ReasonPasswordTooLong  Reason = "password_too_long"
)

// ErrUnauthorized means the identity behind a query could not be resolved.
var ErrUnauthorized = errors.New("unauthorized")

// CredentialError reports a failed login check.
type CredentialError struct {
	Reason Reason
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("invalid credentials (%s)", e.Reason)
}

// ValidationError reports an account setup precondition that did not hold.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("account setup rejected (%s)", e.Reason)
}

// UpdateError reports a failed write of new credentials.
type UpdateError struct {
	Err error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update failed: %v", e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// Fault wraps a persistence or unexpected failure. It is never shown to callers.
type Fault struct {
	Op  string
	Err error
}

func (e *Fault) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Fault) Unwrap() error { return e.Err }
