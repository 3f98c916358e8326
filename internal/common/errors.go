package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match an AppError against the sentinel of its code.
func (e *AppError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// Error codes
const (
	CodeConfig      = "CONFIG_ERROR"
	CodeInput       = "INPUT_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeExternal    = "EXTERNAL_ERROR"
	CodeDatabase    = "DATABASE_ERROR"
	CodePersistence = "PERSISTENCE_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrExternal     = errors.New("external call failed")
	ErrPersistence  = errors.New("persistence failed")
)

var codeSentinels = map[string]error{
	CodeConfig:      ErrValidation,
	CodeInput:       ErrInvalidInput,
	CodeNotFound:    ErrNotFound,
	CodeExternal:    ErrExternal,
	CodeDatabase:    ErrDatabase,
	CodePersistence: ErrPersistence,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func InvalidInputError(message string) error {
	return NewAppError(CodeInput, message, nil)
}

func InvalidInputErrorf(format string, args ...any) error {
	return InvalidInputError(fmt.Sprintf(format, args...))
}

func NotFoundError(message string) error {
	return NewAppError(CodeNotFound, message, nil)
}

func ExternalError(message string, cause error) error {
	return NewAppError(CodeExternal, message, cause)
}

func DatabaseError(message string, cause error) error {
	return NewAppError(CodeDatabase, message, cause)
}

func PersistenceError(message string, cause error) error {
	return NewAppError(CodePersistence, message, cause)
}
