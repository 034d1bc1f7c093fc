package errors

import (
	"fmt"
	"strings"
)

// Publication error types. Each one marks a distinct stage of the pipeline
// so callers can tell a bad declaration from a bad message from a broker
// refusal without string matching.

// DeclarationError rejects a declaration at registration time. The registry
// is left unchanged when one is returned.
type DeclarationError struct {
	Exchange string
	Name     string
	Cause    error
}

// NewDeclarationError creates a DeclarationError for the given declaration.
func NewDeclarationError(exchange, name string, cause error) *DeclarationError {
	return &DeclarationError{
		Exchange: exchange,
		Name:     name,
		Cause:    cause,
	}
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("pulseflow: invalid declaration %q (exchange %q): %v", e.Name, e.Exchange, e.Cause)
}

func (e *DeclarationError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for DeclarationError.
func (e *DeclarationError) Is(target error) bool {
	_, ok := target.(*DeclarationError)
	return ok
}

// ConnectionError rejects a connection attempt before any publish happened:
// missing or conflicting credentials, an unreachable broker, a channel that
// could not enter confirm mode, or an exchange that could not be asserted.
type ConnectionError struct {
	Reason string
	Cause  error
}

// NewConnectionError creates a ConnectionError with a short reason.
func NewConnectionError(reason string, cause error) *ConnectionError {
	return &ConnectionError{
		Reason: reason,
		Cause:  cause,
	}
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pulseflow: connect: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("pulseflow: connect: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)
	return ok
}

// ArgumentError rejects a single publish call because one of the
// declaration's builders failed or returned an unusable value. Nothing was
// sent to the broker.
type ArgumentError struct {
	Entry string
	Stage string
	Cause error
}

// NewArgumentError creates an ArgumentError for the named declaration.
// Stage is the builder that failed: "message", "routing key", or "cc".
func NewArgumentError(entry, stage string, cause error) *ArgumentError {
	return &ArgumentError{
		Entry: entry,
		Stage: stage,
		Cause: cause,
	}
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("pulseflow: publish %q: %s builder: %v", e.Entry, e.Stage, e.Cause)
}

func (e *ArgumentError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ArgumentError.
func (e *ArgumentError) Is(target error) bool {
	_, ok := target.(*ArgumentError)
	return ok
}

// EncodingError rejects a single publish call because the routing key could
// not be encoded within the declaration's constraints. Nothing was sent to
// the broker.
type EncodingError struct {
	Entry  string
	Field  string
	Reason string
}

// NewEncodingError creates an EncodingError for the named declaration.
// Field is empty when the whole key (not one field) violated a constraint.
func NewEncodingError(entry, field, reason string) *EncodingError {
	return &EncodingError{
		Entry:  entry,
		Field:  field,
		Reason: reason,
	}
}

func (e *EncodingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("pulseflow: publish %q: routing key: %s", e.Entry, e.Reason)
	}
	return fmt.Sprintf("pulseflow: publish %q: routing key field %q: %s", e.Entry, e.Field, e.Reason)
}

// Is implements errors.Is for EncodingError.
func (e *EncodingError) Is(target error) bool {
	_, ok := target.(*EncodingError)
	return ok
}

// ValidationError rejects a single publish call because the built message
// does not conform to the declaration's schema. Nothing was sent to the
// broker. Causes holds one line per schema violation.
type ValidationError struct {
	Entry  string
	Schema string
	Causes []string
	Cause  error
}

// NewValidationError creates a ValidationError for the named declaration.
func NewValidationError(entry, schema string, causes []string, cause error) *ValidationError {
	return &ValidationError{
		Entry:  entry,
		Schema: schema,
		Causes: causes,
		Cause:  cause,
	}
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("pulseflow: publish %q: message does not conform to %s", e.Entry, e.Schema)
	if len(e.Causes) > 0 {
		msg += ": " + strings.Join(e.Causes, "; ")
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// BrokerError reports that a message reached the broker but was not
// confirmed: a nack, a closed channel, or a cancelled wait. The message may
// or may not have been routed.
type BrokerError struct {
	Exchange   string
	RoutingKey string
	Reason     string
	Cause      error
}

// NewBrokerError creates a BrokerError for a publish on the given exchange.
func NewBrokerError(exchange, routingKey, reason string, cause error) *BrokerError {
	return &BrokerError{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Reason:     reason,
		Cause:      cause,
	}
}

func (e *BrokerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pulseflow: publish to %q (key %q): %s: %v", e.Exchange, e.RoutingKey, e.Reason, e.Cause)
	}
	return fmt.Sprintf("pulseflow: publish to %q (key %q): %s", e.Exchange, e.RoutingKey, e.Reason)
}

func (e *BrokerError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for BrokerError.
func (e *BrokerError) Is(target error) bool {
	_, ok := target.(*BrokerError)
	return ok
}

// ReferenceSchemaError reports that a generated reference document failed
// validation against the bundled reference meta-schema. It indicates a bug
// in the generator, never bad caller input, and must not be swallowed.
type ReferenceSchemaError struct {
	Causes []string
	Cause  error
}

// NewReferenceSchemaError creates a ReferenceSchemaError.
func NewReferenceSchemaError(causes []string, cause error) *ReferenceSchemaError {
	return &ReferenceSchemaError{
		Causes: causes,
		Cause:  cause,
	}
}

func (e *ReferenceSchemaError) Error() string {
	msg := "pulseflow: generated reference does not conform to the reference meta-schema (this is a bug)"
	if len(e.Causes) > 0 {
		msg += ": " + strings.Join(e.Causes, "; ")
	}
	return msg
}

func (e *ReferenceSchemaError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ReferenceSchemaError.
func (e *ReferenceSchemaError) Is(target error) bool {
	_, ok := target.(*ReferenceSchemaError)
	return ok
}

// FaultKind says which side of the AMQP session died.
type FaultKind string

const (
	FaultConnection FaultKind = "connection"
	FaultChannel    FaultKind = "channel"
)

// FaultError is delivered on the connection's fault channel when the
// underlying AMQP connection or channel closes out from under us. The fault
// is terminal: the connection must be discarded and a new one established.
type FaultError struct {
	Kind  FaultKind
	Cause error
}

// NewFaultError creates a FaultError of the given kind.
func NewFaultError(kind FaultKind, cause error) *FaultError {
	return &FaultError{
		Kind:  kind,
		Cause: cause,
	}
}

func (e *FaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pulseflow: %s fault: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("pulseflow: %s fault", e.Kind)
}

func (e *FaultError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for FaultError.
func (e *FaultError) Is(target error) bool {
	_, ok := target.(*FaultError)
	return ok
}
