package booking

import "errors"

// Kind classifies a failed booking operation for the caller.
type Kind int

const (
	// KindInternal covers store and mail failures.
	KindInternal Kind = iota
	// KindValidation is a client mistake in the submitted data.
	KindValidation
	// KindNotFound means the token or id does not resolve to a booking.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	}
	return "internal"
}

// Error is the only error type returned by Service operations.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns text that is safe to show the caller.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Server error"
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Server error", Err: err}
}

// FieldOf returns the offending input field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
