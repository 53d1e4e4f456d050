// Package apperr holds the error types shared by the generation pipeline.
package apperr

import "fmt"

// ValidationError is bad user input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError reports a missing credential or setting.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not set", e.Key)
}

// UpstreamError is a failed call to an external HTTP dependency.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error: %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error: %s", e.Service, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NotReadyError is returned when a render job is finalized before it completed.
type NotReadyError struct {
	JobID  string
	Status string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("render job %s is not ready (status %q)", e.JobID, e.Status)
}

// GenerationError is a failed or unusable script generation.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to generate script: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("failed to generate script: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
