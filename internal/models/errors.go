package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key violation")
	ErrUntrained     = errors.New("calibrator is untrained: call Fit before Predict")
	ErrSessionExists = errors.New("session already exists")
)

// ValidationError signals invalid input parameters: bad walk-forward window
// parameters, empty Monte Carlo input, insufficient calibration samples.
// Always surfaced synchronously, never silently clamped.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError checks whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DataInsufficiencyError signals that the data in range cannot support a
// trial: zero events, zero test-period bets. The trial records it as an error
// string and the session continues.
type DataInsufficiencyError struct {
	Msg string
}

func (e *DataInsufficiencyError) Error() string {
	return e.Msg
}

// NewDataInsufficiencyError builds a DataInsufficiencyError.
func NewDataInsufficiencyError(format string, args ...any) error {
	return &DataInsufficiencyError{Msg: fmt.Sprintf(format, args...)}
}

// IsDataInsufficiency checks whether err is (or wraps) a DataInsufficiencyError.
func IsDataInsufficiency(err error) bool {
	var de *DataInsufficiencyError
	return errors.As(err, &de)
}
