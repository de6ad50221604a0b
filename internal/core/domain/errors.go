package domain

import (
	"errors"
	"fmt"
)

// Registration errors.
var (
	ErrDuplicateUsername       = errors.New("username already exists")
	ErrDuplicateEmail          = errors.New("email already registered")
	ErrDuplicatePhoneNumber    = errors.New("phone number already registered")
	ErrDuplicateABN            = errors.New("abn already registered")
	ErrUnrecognisedAccountKind = errors.New("unrecognised account kind")
	ErrVerificationFailed      = errors.New("verification failed")
	ErrInvalidRegistration     = errors.New("invalid registration")
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
)

// Listing and application errors.
var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidListing      = errors.New("invalid listing")
	ErrNotJobListing       = errors.New("listing is not a job listing")
	ErrForbidden           = errors.New("access forbidden")
	ErrNotEligible         = errors.New("applicant is not eligible for this listing")
	ErrAlreadyApplied      = errors.New("already applied to this listing")
	ErrWrongAccountKind    = errors.New("only service providers can apply")
)

// Storage errors.
var (
	// ErrConflict is wrapped by ConflictError when a unique constraint rejects a write.
	ErrConflict = errors.New("unique constraint violated")
	// ErrStorageUnavailable marks transient failures that may succeed on retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ConflictError names the field whose uniqueness constraint rejected a write.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConflict, e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// VerificationError carries the kind-specific reason a strategy rejected a registration.
type VerificationError struct {
	Kind   AccountKind
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrVerificationFailed, e.Reason)
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }
