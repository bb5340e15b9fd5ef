package offers

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrState         = errors.New("invalid offer state")
	ErrNotFound      = errors.New("not found")
	ErrThreshold     = errors.New("threshold exceeded")
)

// Error is returned by every Service operation that refuses to act.
// Kind is one of the sentinel errors above.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("offers: %s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("offers: %s: %s", e.Op, msg)
}

// Is reports whether target is the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationErr(op, msg string) error { return &Error{Kind: ErrValidation, Op: op, Msg: msg} }
func authErr(op, msg string) error       { return &Error{Kind: ErrAuthorization, Op: op, Msg: msg} }
func stateErr(op, msg string) error      { return &Error{Kind: ErrState, Op: op, Msg: msg} }
func thresholdErr(op, msg string) error  { return &Error{Kind: ErrThreshold, Op: op, Msg: msg} }

func notFound(op, what string) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: what + " not found"}
}

// KindOf returns the sentinel kind of err, or nil when err is not an *Error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
