// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrProfileNotFound    = errors.New("constraint profile not found")
	ErrAlreadySubmitted   = errors.New("signal already submitted")
	ErrSignalExpired      = errors.New("signal expired")
	ErrEmptyMarketContext = errors.New("empty market context")
	ErrStopLossRequired   = errors.New("stop loss required by account policy")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDatabaseError      = errors.New("database error")
)

// GenerationError represents an infrastructure or parse failure from the
// generation model. It is retriable at the call site; it is never a content
// judgment on the trade itself.
type GenerationError struct {
	Model  string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failure [%s]: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("generation failure [%s]: %s", e.Model, e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(model, reason string, err error) *GenerationError {
	return &GenerationError{
		Model:  model,
		Reason: reason,
		Err:    err,
	}
}

// ValidationError represents an infrastructure or parse failure from the
// validation model. Distinct from a reject verdict, which is a content
// judgment and flows through ValidationVerdict instead.
type ValidationError struct {
	Model  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failure [%s]: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failure [%s]: %s", e.Model, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(model, reason string, err error) *ValidationError {
	return &ValidationError{
		Model:  model,
		Reason: reason,
		Err:    err,
	}
}

// ConstraintViolation represents a declined signal: either the validator's
// reject verdict or the enforcer's reject decision. Never retried, always
// audited.
type ConstraintViolation struct {
	SignalID  string
	Invariant string
	Detail    string
}

func (e *ConstraintViolation) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("constraint violation [%s] %s: %s", e.SignalID, e.Invariant, e.Detail)
	}
	return fmt.Sprintf("constraint violation [%s] %s", e.SignalID, e.Invariant)
}

// NewConstraintViolation creates a new ConstraintViolation.
func NewConstraintViolation(signalID, invariant, detail string) *ConstraintViolation {
	return &ConstraintViolation{
		SignalID:  signalID,
		Invariant: invariant,
		Detail:    detail,
	}
}

// BrokerError represents a post-submission rejection from the broker.
// Terminal for that order; never resubmitted with altered parameters.
type BrokerError struct {
	ClientOrderID string
	Reason        string
	Err           error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.ClientOrderID, e.Reason, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.ClientOrderID, e.Reason)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(clientOrderID, reason string, err error) *BrokerError {
	return &BrokerError{
		ClientOrderID: clientOrderID,
		Reason:        reason,
		Err:           err,
	}
}

// OrderError represents a local failure while constructing or submitting
// an order, before or independent of the broker's judgment.
type OrderError struct {
	SignalID string
	Action   string
	Reason   string
	Err      error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s: %s: %v", e.SignalID, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s: %s", e.SignalID, e.Action, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(signalID, action, reason string, err error) *OrderError {
	return &OrderError{
		SignalID: signalID,
		Action:   action,
		Reason:   reason,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
