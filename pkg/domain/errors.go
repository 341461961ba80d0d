package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches any *TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrDecode matches any *DecodeError.
	ErrDecode = errors.New("decode failure")
	// ErrRejected matches any *RejectedError.
	ErrRejected = errors.New("request rejected by backend")
	// ErrInvariant matches any *InvariantError.
	ErrInvariant = errors.New("invariant violation")
)

// ErrSessionNotFound is returned when a session snapshot cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// TransportError reports a channel-level send or receive failure.
// It is fatal to the current call and is never turned into a reply.
type TransportError struct {
	Op      string // request name, e.g. "addFactor"
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport: %s via %s: %v", e.Op, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DecodeError reports an inbound document that did not parse or lacked an
// expected field or discriminator.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// RejectedError reports a reply that parsed but whose status is not "OK".
// The full reply is kept so callers can inspect it.
type RejectedError struct {
	Op      string
	Status  string
	Message string
	Reply   Document
}

func (e *RejectedError) Error() string {
	status := e.Status
	if status == "" {
		status = "<missing>"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s rejected: status %s: %s", e.Op, status, e.Message)
	}
	return fmt.Sprintf("%s rejected: status %s", e.Op, status)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// InvariantError reports a local precondition failure detected while
// building an element, before any network activity.
type InvariantError struct {
	Element string
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Element, e.Reason)
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

func invariant(element, format string, args ...any) error {
	return &InvariantError{Element: element, Reason: fmt.Sprintf(format, args...)}
}
