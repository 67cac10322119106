package till

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("till: not found")
	ErrAlreadyExists = errors.New("till: already exists")
	ErrInvalidInput  = errors.New("till: invalid input")

	// Event errors
	ErrEventNotFound = errors.New("till: event not found")

	// Product errors
	ErrProductNotFound   = errors.New("till: product not found")
	ErrProductHasSales   = errors.New("till: product has sales")
	ErrInsufficientStock = errors.New("till: insufficient stock")

	// Sale errors
	ErrSaleNotFound         = errors.New("till: sale not found")
	ErrSaleAlreadyCancelled = errors.New("till: sale already cancelled")

	// Store errors
	ErrStoreClosed     = errors.New("till: store is closed")
	ErrMigrationFailed = errors.New("till: migration failed")
)

// ValidationError represents an input rejected before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("till: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// StorageError wraps a failure reported by the storage collaborator.
// The enclosing unit of work has been aborted when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("till: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSaleNotFound)
}

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsStorage returns true if err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
