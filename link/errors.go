package link

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindNotFound means no such port exists
	KindNotFound Kind = iota + 1

	// KindAccessDenied means the port exists but could not be acquired
	KindAccessDenied

	// KindStalled is a transient I/O failure; retry after recovery
	KindStalled

	// KindCancelled means the operation was cancelled by the caller
	KindCancelled

	// KindTimeout means a read deadline elapsed before completion
	KindTimeout

	// KindFatal is an unrecoverable I/O failure; the session must end
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAccessDenied:
		return "access denied"
	case KindStalled:
		return "stalled"
	case KindCancelled:
		return "cancelled"
	case KindTimeout:
		return "timeout"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a transport failure tagged with the operation and port it
// occurred on.
type Error struct {
	// Op is the link operation that failed ("open", "write", ...)
	Op string

	// Port is the OS port identifier
	Port string

	// Kind classifies the failure
	Kind Kind

	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serial %s on %s: %s: %v", e.Op, e.Port, e.Kind, e.Err)
	}
	return fmt.Sprintf("serial %s on %s: %s", e.Op, e.Port, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth one recovery attempt
// (purge, settle, re-handshake) before giving up.
func (e *Error) Transient() bool {
	return e.Kind == KindStalled || e.Kind == KindTimeout
}

// AsError unwraps err into a *Error if there is one in the chain.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// classify maps a go.bug.st/serial failure onto the transport taxonomy.
func classify(op, port string, err error) *Error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound:
			return &Error{Op: op, Port: port, Kind: KindNotFound, Err: err}
		case serial.PermissionDenied, serial.PortBusy:
			return &Error{Op: op, Port: port, Kind: KindAccessDenied, Err: err}
		case serial.PortClosed:
			// A closed handle under an active session is what a purge
			// plus reopen recovers from.
			return &Error{Op: op, Port: port, Kind: KindStalled, Err: err}
		case serial.InvalidSerialPort:
			return &Error{Op: op, Port: port, Kind: KindFatal, Err: err}
		}
	}
	return &Error{Op: op, Port: port, Kind: KindStalled, Err: err}
}
