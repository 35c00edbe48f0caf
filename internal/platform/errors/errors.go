package errors

import (
	stderrors "errors"
	"net/http"
)

// Error carries a Code alongside a log-oriented message. Metadata names the
// offending scenario field, entity or expression when there is one.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return e.Cause.Error()
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same Code, so a bare New(code, "") works as
// an errors.Is target.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Code == e.Code
}

// HTTPStatus is the status the battle API answers with for this error.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return e.Code.HTTPStatus()
}

// New returns an error with code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata is New with metadata attached.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap returns an error with code and message around cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WrapWithMetadata is Wrap with metadata attached.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's tree, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MetadataOf merges the metadata of every *Error in err's chain. Outer
// errors win on key conflicts. It returns nil when there is none.
func MetadataOf(err error) map[string]string {
	var merged map[string]string
	for err != nil {
		if e, ok := err.(*Error); ok && len(e.Metadata) > 0 {
			if merged == nil {
				merged = make(map[string]string, len(e.Metadata))
			}
			for k, v := range e.Metadata {
				if _, seen := merged[k]; !seen {
					merged[k] = v
				}
			}
		}
		err = stderrors.Unwrap(err)
	}
	return merged
}
