package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy of the link shortener. Handlers map these to HTTP statuses with errors.Is.

// ErrLinkNotFound is returned when no live link carries the requested code.
var ErrLinkNotFound = errors.New("link not found")

// ErrDuplicateCode is returned by a store when its uniqueness constraint rejects a create.
var ErrDuplicateCode = errors.New("duplicate code")

// ErrCodeTaken is returned when a caller-supplied code is already in use or reserved.
var ErrCodeTaken = errors.New("code already taken")

// ErrAllocationExhausted is returned when random code generation runs out of attempts.
// It signals an operational fault, not a user error.
var ErrAllocationExhausted = errors.New("failed to allocate a unique code")

// ErrInvalidFormat is the parent of every input validation failure.
var ErrInvalidFormat = errors.New("invalid format")

// ValidationError describes a rejected input field. It matches ErrInvalidFormat.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// ErrClickRecordingFailed is returned when a click increment could not be persisted.
type ErrClickRecordingFailed struct {
	Code   string
	Reason string
}

func (e ErrClickRecordingFailed) Error() string {
	return fmt.Sprintf("failed to record click for code %s: %s", e.Code, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
