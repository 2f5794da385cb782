package errcode

import "errors"

// Code is a stable, caller-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"           // bus unavailable
	InvalidParams Code = "invalid_params" // nil or malformed context
	TransferError Code = "transfer_error" // peripheral reported failure
	Unsupported   Code = "unsupported"
	Timeout       Code = "timeout"

	UnknownBus Code = "unknown_bus"
	UnknownPin Code = "unknown_pin"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.Busy) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap builds an *E for op with a cause.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	// The outermost *E wins over any code further down its chain.
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// Status is the three-valued result reported to PAL callers.
type Status uint8

const (
	Success Status = iota
	Failure
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case StatusBusy:
		return "busy"
	default:
		return "failure"
	}
}

// StatusOf folds any error into the PAL status triple.
func StatusOf(err error) Status {
	switch Of(err) {
	case OK:
		return Success
	case Busy:
		return StatusBusy
	default:
		return Failure
	}
}
