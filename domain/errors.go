package domain

import "errors"

var (
	// ErrNotFound indicates the referenced task does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrStoreUnavailable is matched by every error that originated in the store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStorageNil is returned when a service is built without a store.
	ErrStorageNil = errors.New("task storage is nil")
)

// ValidationError describes a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// StoreError wraps a failed store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
