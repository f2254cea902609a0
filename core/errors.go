package core

import (
	"errors"
	"fmt"
)

// TransportError wraps a remote-call failure (timeout, network, auth
// rejection). It is surfaced to the caller of the failing operation and
// never retried by the engine.
type TransportError struct {
	Operation  string `json:"operation"`
	EntityType string `json:"entity_type,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

// Error implements error
func (e *TransportError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("transport failure during %s of %s: %v", e.Operation, e.EntityType, e.Err)
	}
	return fmt.Sprintf("transport failure during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a transport failure of an operation
func NewTransportError(operation, entityType string, err error) *TransportError {
	return &TransportError{
		Operation:  operation,
		EntityType: entityType,
		Err:        err,
	}
}

// ValidationWarning reports a recoverable data anomaly (malformed
// bitfield, missing cross-reference). Warnings attach to the affected
// item; processing continues.
type ValidationWarning struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Error implements error
func (w *ValidationWarning) Error() string {
	return fmt.Sprintf("validation: %s: %s", w.Subject, w.Message)
}

// NewValidationWarning creates a warning for a subject
func NewValidationWarning(subject, format string, args ...interface{}) *ValidationWarning {
	return &ValidationWarning{
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	}
}

// PartialWriteError records one rejected record of a bulk batch. It is
// accumulated into the migration session's error list and never aborts
// the batch or the run.
type PartialWriteError struct {
	EntityType string `json:"entity_type"`
	RecordKey  string `json:"record_key"`
	Remote     string `json:"remote_message"`
}

// Error implements error
func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.EntityType, e.RecordKey, e.Remote)
}

// ConfigurationError reports an invalid run setup detected before any
// remote call is made. It is the only error class the top-level entry
// points reject with.
type ConfigurationError struct {
	Message string `json:"message"`
}

// Error implements error
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s", e.Message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTransportError reports whether err is a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
