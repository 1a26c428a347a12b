package store

import (
	"errors"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrReferenced is returned when a foreign key blocks a write: deleting a
	// row still referenced under RESTRICT, or inserting a dangling reference.
	ErrReferenced = errors.New("foreign key constraint")

	// ErrStatusChanged is returned when a conditional intent update finds a
	// status other than the one it expected.
	ErrStatusChanged = errors.New("intent status changed concurrently")
)

// AppError maps store errors onto the application error codes.
func AppError(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, message, err)
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrReferenced), errors.Is(err, ErrStatusChanged):
		return apperr.Wrap(apperr.CodeConflict, message, err)
	default:
		return apperr.Wrap(apperr.CodePersistence, message, err)
	}
}
