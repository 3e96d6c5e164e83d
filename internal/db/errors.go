package db

import "errors"

// Sentinel errors for storage operations.
var (
	ErrKeyNotFound      = errors.New("db: key not found")
	ErrSnapshotNotFound = errors.New("db: snapshot not found")
	ErrCorruptSnapshot  = errors.New("db: corrupt snapshot")
)

// Op constants name the failing operation for error context.
const (
	OpGet      = "GET"
	OpSet      = "SET"
	OpPing     = "PING"
	OpSave     = "SAVE"
	OpLoad     = "LOAD"
	OpValidate = "VALIDATE"
	OpOpen     = "OPEN"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
