package apperr

import (
	stdErrors "errors"
	"fmt"
)

// Code classifies a failure talking to the cart backend.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeNetworkFailure  Code = "NETWORK_FAILURE"
	CodeServerRejected  Code = "SERVER_REJECTED"
	CodeInvalidResponse Code = "INVALID_RESPONSE"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Metadata describes how a code should be treated by callers.
type Metadata struct {
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeUnauthenticated: {
		Retryable:     false,
		PublicMessage: "please log in again",
	},
	CodeNetworkFailure: {
		Retryable:     true,
		PublicMessage: "could not reach the store",
	},
	CodeServerRejected: {
		Retryable:     false,
		PublicMessage: "the store rejected the change",
	},
	CodeInvalidResponse: {
		Retryable:     true,
		PublicMessage: "the store sent an unexpected response",
	},
	CodeInternal: {
		Retryable:     false,
		PublicMessage: "something went wrong",
	},
}

// MetadataFor returns the metadata for code, falling back to CodeInternal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional HTTP status and cause.
type Error struct {
	code    Code
	message string
	status  int
	cause   error
}

// New builds an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap builds an Error around err.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// WithStatus records the HTTP status that produced the error.
func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.status = status
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Status is the HTTP status, or zero when the request never completed.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.status
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the first *Error in err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, CodeInternal for foreign errors and
// the empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// PublicMessage returns the user-facing text for err.
func PublicMessage(err error) string {
	return MetadataFor(CodeOf(err)).PublicMessage
}
