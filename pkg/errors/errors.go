// Package errors carries a Code through the error chain so the HTTP layer can
// pick a status and public message without knowing which service failed.
package errors

import (
	stderrors "errors"
	"fmt"
)

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is/As. A nil err degrades to New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
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

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return string(e.code) + ": " + e.message
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// WithReason sets details["reason"], turning non-map details into a map.
// Clients branch on the reason, not on the message.
func (e *Error) WithReason(reason string) *Error {
	return e.withDetail("reason", reason)
}

func (e *Error) withDetail(key string, value any) *Error {
	if e == nil {
		return nil
	}
	details, ok := e.details.(map[string]any)
	if !ok || details == nil {
		details = make(map[string]any, 1)
	}
	details[key] = value
	e.details = details
	return e
}

// Reason returns details["reason"] or "".
func (e *Error) Reason() string {
	if e == nil {
		return ""
	}
	details, _ := e.details.(map[string]any)
	reason, _ := details["reason"].(string)
	return reason
}

// As finds the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf treats untyped errors as internal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
