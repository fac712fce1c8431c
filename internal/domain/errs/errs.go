// Package errs defines the error taxonomy shared by the team manager, the
// approval engine, and the stores beneath them.
//
// Every error a caller can act on is an *Error with a Kind and a stable Code.
// errors.Is matches on Kind and Code, so an error that was re-created with a
// more specific message still matches its sentinel.
package errs

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the operator-facing layer.
type Kind string

const (
	KindValidation Kind = "validation"
	KindInvariant  Kind = "invariant"
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindAuth       Kind = "auth"
	KindDuplicate  Kind = "duplicate"
	KindInternal   Kind = "internal"
)

// Error is a recoverable, caller-facing error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Is reports whether target is an *Error with the same Kind and Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrDuplicateEmail = newErr(KindDuplicate, "duplicate_email", "a user with this email already exists")

	ErrCannotRemoveOwner       = newErr(KindInvariant, "cannot_remove_owner", "the organization owner cannot be removed; transfer ownership first")
	ErrMustBeExistingMember    = newErr(KindInvariant, "must_be_existing_member", "ownership can only be transferred to an existing member of the organization")
	ErrAlreadyOwner            = newErr(KindInvariant, "already_owner", "this user already owns the organization")
	ErrNotAMember              = newErr(KindInvariant, "not_a_member", "this user is not a member of the organization")
	ErrRemovalAlreadyRequested = newErr(KindInvariant, "removal_already_requested", "a removal request for this member is already open")
	ErrOrganizationNotActive   = newErr(KindInvariant, "organization_not_active", "the organization is not published")
	ErrInvalidTransition       = newErr(KindInvariant, "invalid_transition", "the request cannot move to that state")

	// ErrInvalidRequest is deliberately generic so unknown ids are not
	// distinguishable from ids the actor may not see.
	ErrInvalidRequest = newErr(KindNotFound, "invalid_request", "invalid request")

	ErrPermissionDenied = newErr(KindPermission, "permission_denied", "you do not have permission to perform this action")

	// ErrInvalidCredentials covers an unknown email, a wrong password and an
	// account without a password alike.
	ErrInvalidCredentials = newErr(KindAuth, "invalid_credentials", "email or password is incorrect")
	ErrAccountPending     = newErr(KindPermission, "account_pending", "this account is awaiting approval")
)

// Validation returns a validation error with the given code and message.
func Validation(code, msg string) *Error {
	return newErr(KindValidation, code, msg)
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of err, or "internal" when err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// HTTPStatus maps an error to the status code the operator API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvariant, KindDuplicate:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message safe to show to the caller. Internal errors are
// replaced by a generic message.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return "an internal error occurred"
}
