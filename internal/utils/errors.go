package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"

	// CodeGateway marks a failed model call (transport, auth, timeout or provider error).
	CodeGateway Code = "GATEWAY_ERROR"
	// CodeStore marks a failed conversation log write or read.
	CodeStore Code = "STORE_ERROR"
)

var statusByCode = map[Code]int{
	CodeInvalidArgument: http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeUnavailable:     http.StatusServiceUnavailable,
	CodeGateway:         http.StatusBadGateway,
	CodeStore:           http.StatusInternalServerError,
	CodeInternal:        http.StatusInternalServerError,
}

// ErrNotFound is returned by repositories for a missing row or document.
var ErrNotFound = errors.New("not found")

// AppError carries a code for the presentation layer and the operation that
// failed for the logs. Message is safe to show; Err is not.
type AppError struct {
	Code    Code
	Op      string // "ChatService.ProcessTurn"
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == code
}

// CodeOf returns the code of the first AppError in the chain. Bare
// ErrNotFound maps to CodeNotFound, anything else to CodeInternal.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if errors.Is(err, ErrNotFound) {
		return CodeNotFound
	}
	return CodeInternal
}

func HTTPStatus(err error) int {
	if s, ok := statusByCode[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
