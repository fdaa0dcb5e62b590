package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownJobKind indicates a deployment/versioning mismatch: a job row
// exists whose kind has no registered handler. The job goes dead immediately
// and operators are alerted.
var ErrUnknownJobKind = errors.New("unknown job kind")

// TransientError marks a retryable failure (network, timeout, external rate
// limit). The job is rescheduled after backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps an error as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// ValidationError marks a malformed or unrecognized payload. Non-retryable:
// the job goes straight to dead and the payload is recorded to the side
// error log scoped by (user, provider, stage).
type ValidationError struct {
	Provider string
	Stage    string
	Payload  json.RawMessage
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %s/%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps an error as a non-retryable validation failure
func Invalid(provider, stage string, payload json.RawMessage, err error) error {
	return &ValidationError{Provider: provider, Stage: stage, Payload: payload, Err: err}
}

// QuotaExhaustedError marks an external capability guardrail denial.
// Retryable like a transient error, but with a longer minimum backoff.
type QuotaExhaustedError struct {
	Capability string
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted for %s", e.Capability)
}

// IsValidation reports whether err is (or wraps) a validation failure
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsQuotaExhausted reports whether err is (or wraps) a quota denial
func IsQuotaExhausted(err error) bool {
	var qe *QuotaExhaustedError
	return errors.As(err, &qe)
}
