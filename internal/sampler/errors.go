package sampler

import (
	"errors"
	"fmt"
)

// SessionError is a fatal sampling-session failure.
//
// SessionError includes structured fields for diagnostics.
type SessionError struct {
	// Code identifies the error category.
	Code SessionErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the frame sequence number being processed, zero if none.
	Seq int64

	// Err is the underlying cause.
	Err error
}

// SessionErrorCode categorizes session errors.
type SessionErrorCode string

const (
	// ErrCodeAcquisitionFailed indicates the frame source could not be
	// opened or failed mid-stream.
	ErrCodeAcquisitionFailed SessionErrorCode = "ACQUISITION_FAILED"

	// ErrCodeDetectorFailed indicates an eye detection call failed.
	ErrCodeDetectorFailed SessionErrorCode = "DETECTOR_FAILED"
)

// Error implements the error interface.
func (e *SessionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Seq > 0 {
		msg = fmt.Sprintf("%s (frame=%d)", msg, e.Seq)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsAcquisitionError returns true if the error is a frame acquisition failure.
// Uses errors.As to handle wrapped errors.
func IsAcquisitionError(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == ErrCodeAcquisitionFailed
	}
	return false
}

// IsDetectorError returns true if the error is a detector failure.
// Uses errors.As to handle wrapped errors.
func IsDetectorError(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == ErrCodeDetectorFailed
	}
	return false
}

func acquisitionError(msg string, seq int64, err error) *SessionError {
	return &SessionError{Code: ErrCodeAcquisitionFailed, Message: msg, Seq: seq, Err: err}
}

func detectorError(seq int64, err error) *SessionError {
	return &SessionError{Code: ErrCodeDetectorFailed, Message: "eye detection failed", Seq: seq, Err: err}
}
