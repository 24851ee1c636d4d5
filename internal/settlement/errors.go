package settlement

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateJournal means a journal header already exists for the order.
	ErrDuplicateJournal = errors.New("journal already posted for order")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUnbalanced       = errors.New("journal is not balanced")
	ErrStockConflict    = errors.New("stock changed concurrently")
)

// ValidationError reports a notification that cannot be resolved to an order.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return e.Entity == "order" && target == ErrOrderNotFound
}

// StorageError wraps a failed call against the ledger store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrDuplicateJournal) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
