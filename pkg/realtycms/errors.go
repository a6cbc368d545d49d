package realtycms

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the services wraps one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Repository level errors
var (
	// ErrItemNotFound indicates a content item was not found
	ErrItemNotFound = fmt.Errorf("content item %w", ErrNotFound)

	// ErrObjectNotFound indicates a stored blob was not found
	ErrObjectNotFound = fmt.Errorf("object %w", ErrNotFound)

	// ErrUserNotFound indicates a user was not found
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrDuplicateSlug indicates the slug is already used within the kind
	ErrDuplicateSlug = fmt.Errorf("%w: duplicate slug", ErrConflict)

	// ErrDuplicatePID indicates the generated pid collided
	ErrDuplicatePID = fmt.Errorf("%w: duplicate pid", ErrConflict)

	// ErrDuplicateInterest indicates the user already expressed interest
	ErrDuplicateInterest = fmt.Errorf("%w: duplicate interest", ErrConflict)

	// ErrDuplicateUser indicates the uid or username is taken
	ErrDuplicateUser = fmt.Errorf("%w: duplicate user", ErrConflict)

	// ErrInvalidImage indicates an upload that is not an accepted image
	ErrInvalidImage = fmt.Errorf("%w: invalid image", ErrValidation)

	// ErrInvalidSlug indicates a supplied slug outside [a-z0-9-]
	ErrInvalidSlug = fmt.Errorf("%w: slug may only contain lower-case letters, digits and hyphens", ErrValidation)

	// ErrEmptySlug indicates a title without any letter or digit
	ErrEmptySlug = fmt.Errorf("%w: title must contain at least one letter or digit", ErrValidation)
)

// ContentError represents an error related to a content operation. Message is
// the client facing text; when empty the wrapped error is shown.
type ContentError struct {
	Kind    Kind
	Op      string
	Err     error
	Message string
}

func (e *ContentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s operation %s failed: %v", e.Kind, e.Op, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error, msg string) *ContentError {
	return &ContentError{Kind: kind, Op: op, Err: err, Message: msg}
}

// Message returns the client facing text of err.
func Message(err error) string {
	var ce *ContentError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}
