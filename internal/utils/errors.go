package utils

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// AppError is an error that carries the HTTP status and message shown to the caller
type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("app error (status=%d): %s", e.Status, e.Message)
	}
	return e.Code + ": " + e.Message
}

// NewError builds an AppError
func NewError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// Common errors
var (
	ErrUnauthorized      = NewError(http.StatusUnauthorized, "unauthorized", "Unauthorized")
	ErrForbidden         = NewError(http.StatusForbidden, "forbidden", "You do not have access to this resource")
	ErrNotFound          = NewError(http.StatusNotFound, "not_found", "Not found")
	ErrInvalidTransition = NewError(http.StatusConflict, "invalid_transition", "That status change is not allowed")
)

// ErrorMessage extracts the user-facing message from err, or fallback when err has none
func ErrorMessage(err error, fallback string) string {
	var appErr *AppError
	switch {
	case err == nil:
		return fallback
	case errors.As(err, &appErr):
		return appErr.Message
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "not found"
	}
	return fallback
}

// ErrorStatus maps err onto an HTTP status and machine-readable code
func ErrorStatus(err error) (int, string) {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Status, appErr.Code
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal"
}
