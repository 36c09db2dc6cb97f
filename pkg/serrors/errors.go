package serrors

import (
	"errors"
	"fmt"
)

// BaseError is a coded error that can be compared with errors.Is by code.
type BaseError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LocaleKey string `json:"locale_key,omitempty"`

	retryable bool
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

// NewRetryableError marks failures the caller may safely retry (storage timeouts and the like).
func NewRetryableError(code, message, localeKey string) *BaseError {
	e := NewError(code, message, localeKey)
	e.retryable = true
	return e
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *BaseError) Retryable() bool {
	return e.retryable
}

// Wrapf attaches detail to a coded error while keeping it matchable with errors.Is.
func Wrapf(base *BaseError, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{base}, args...)...)
}

// Code returns the code of the first BaseError in the chain, or "" when none is present.
func Code(err error) string {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsRetryable(err error) bool {
	var be *BaseError
	if errors.As(err, &be) {
		return be.retryable
	}
	return false
}
