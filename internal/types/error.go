package types

import "fmt"

// CustomError is a caller-visible error with a stable machine type.
// Code is the HTTP status the error maps to; Type is a dotted identifier
// (e.g. "loans.no_copies_available") clients can switch on.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// NewError builds a CustomError.
func NewError(code int, message, errType string) *CustomError {
	return &CustomError{Code: code, Message: message, Type: errType}
}
