package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKind_Validation   ErrorKind = "validation"
	ErrorKind_Busy         ErrorKind = "busy"
	ErrorKind_Generation   ErrorKind = "generation"
	ErrorKind_Upload       ErrorKind = "upload"
	ErrorKind_Mint         ErrorKind = "mint"
	ErrorKind_Confirmation ErrorKind = "confirmation"
	ErrorKind_Cancelled    ErrorKind = "cancelled"
)

var ErrBusy = errors.New("a mint is already in progress")

// MintError is the only error type returned by the orchestrator. Message is safe to show to the user, Err carries the
// underlying cause.
type MintError struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Err     error
}

func NewMintError(kind ErrorKind, stage Stage, message string, err error) *MintError {
	return &MintError{kind, stage, message, err}
}

func (e *MintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *MintError) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind ErrorKind) bool {
	var mintErr *MintError
	return errors.As(err, &mintErr) && mintErr.Kind == kind
}
