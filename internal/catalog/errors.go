package catalog

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload matches every rejected admin write.
var ErrInvalidPayload = errors.New("catalog: invalid payload")

// ErrNoBackup is returned by RestoreLatest when a file was never backed up.
var ErrNoBackup = errors.New("catalog: no backup found")

// ErrUnknownItem is returned by item edits addressing a SKU that is not in
// the catalog.
var ErrUnknownItem = errors.New("catalog: item not found")

// Reasons reported by PayloadError.
const (
	ReasonMalformed     = "malformed"
	ReasonUnknownShape  = "unknown_structure"
	ReasonMissingSKU    = "missing_sku"
	ReasonMissingHeader = "missing_header"
)

// PayloadError describes why an admin payload was rejected. Files are never
// touched when it is returned.
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog: invalid payload (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("catalog: invalid payload (%s)", e.Reason)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidPayload) hold for every PayloadError.
func (e *PayloadError) Is(target error) bool { return target == ErrInvalidPayload }

// Code reports the stable error code used in handler logs.
func (e *PayloadError) Code() string { return "INVALID_PAYLOAD" }

func invalid(reason string, err error) error {
	return &PayloadError{Reason: reason, Err: err}
}
