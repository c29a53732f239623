package contact

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrDelivery          = errors.New("message delivery failed")
	ErrUnsupportedMethod = errors.New("unsupported request method")
	ErrRateLimited       = errors.New("too many submissions")
)

// User-visible messages.
const (
	MessageSent          = "Thank you! Your message has been sent."
	MessageMissingField  = "All fields are required"
	MessageInvalidEmail  = "Invalid email format"
	MessageDeliveryError = "Oops! Something went wrong. Please try again."
	MessageInvalidMethod = "Invalid request method"
	MessageRateLimited   = "Too many messages. Please try again later."
)

// FieldError names the field a validation error was raised for.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(err error, field string) error {
	return &FieldError{Field: field, Err: err}
}

// Message maps an outcome to the text shown to the visitor.
func Message(err error) string {
	switch {
	case err == nil:
		return MessageSent
	case errors.Is(err, ErrMissingField):
		return MessageMissingField
	case errors.Is(err, ErrInvalidEmail):
		return MessageInvalidEmail
	case errors.Is(err, ErrUnsupportedMethod):
		return MessageInvalidMethod
	case errors.Is(err, ErrRateLimited):
		return MessageRateLimited
	default:
		return MessageDeliveryError
	}
}

// StatusCode maps an outcome to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidEmail):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnsupportedMethod):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// Response is the JSON body returned for every contact outcome.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewResponse(err error) Response {
	return Response{Success: err == nil, Message: Message(err)}
}
