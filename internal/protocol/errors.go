package protocol

import (
	"errors"
	"fmt"
)

// Code is the numeric reason carried in an errno attribute.
type Code uint32

const (
	CodeOK Code = iota
	CodeLineTooLong
	CodeInvalidInput
	CodeUnknownKey
	CodeProtocolOrder
	CodeInvalidValue
	CodeUnsupportedVersion
	CodeAddressUnavailable
	CodeInternal
)

// String returns a short human-readable description of the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "success"
	case CodeLineTooLong:
		return "line too long"
	case CodeInvalidInput:
		return "invalid input"
	case CodeUnknownKey:
		return "unknown key"
	case CodeProtocolOrder:
		return "key out of order"
	case CodeInvalidValue:
		return "invalid value"
	case CodeUnsupportedVersion:
		return "unsupported protocol version"
	case CodeAddressUnavailable:
		return "address unavailable"
	case CodeInternal:
		return "internal error"
	default:
		return fmt.Sprintf("Code(%d)", uint32(c))
	}
}

// Error is a protocol-level failure. Two Errors match under errors.Is when
// their codes are equal, so the sentinels below can be compared against
// errors that carry extra detail.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return "protocol: " + e.Code.String()
	}
	return fmt.Sprintf("protocol: %s: %s", e.Code, e.Msg)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrLineTooLong        = &Error{Code: CodeLineTooLong}
	ErrInvalidInput       = &Error{Code: CodeInvalidInput}
	ErrUnknownKey         = &Error{Code: CodeUnknownKey}
	ErrProtocolOrder      = &Error{Code: CodeProtocolOrder}
	ErrInvalidValue       = &Error{Code: CodeInvalidValue}
	ErrUnsupportedVersion = &Error{Code: CodeUnsupportedVersion}
	ErrAddressUnavailable = &Error{Code: CodeAddressUnavailable}
	ErrInternal           = &Error{Code: CodeInternal}
)

// Errorf builds an *Error with the given code and a formatted detail message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the numeric reason from err. Errors that are not protocol
// errors map to CodeInternal; nil maps to CodeOK.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}
