// Package apierr defines the user-facing error taxonomy and its HTTP mapping.
package apierr

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Code identifies a machine-stable error kind.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeDuplicateEmail     Code = "DUPLICATE_EMAIL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeExpiredToken       Code = "EXPIRED_TOKEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidIdentifier  Code = "INVALID_IDENTIFIER"
	CodeNoFile             Code = "NO_FILE"
	CodeUnsupportedType    Code = "UNSUPPORTED_TYPE"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeUpstream           Code = "UPSTREAM_ERROR"
	CodeUnhandled          Code = "UNHANDLED"
)

// statusByCode is the single place where error kinds become HTTP statuses.
// DUPLICATE_EMAIL stays 400 to keep existing clients working.
var statusByCode = map[Code]int{
	CodeValidation:         http.StatusBadRequest,
	CodeDuplicateEmail:     http.StatusBadRequest,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeUnauthenticated:    http.StatusUnauthorized,
	CodeInvalidToken:       http.StatusUnauthorized,
	CodeExpiredToken:       http.StatusUnauthorized,
	CodeNotFound:           http.StatusNotFound,
	CodeInvalidIdentifier:  http.StatusBadRequest,
	CodeNoFile:             http.StatusBadRequest,
	CodeUnsupportedType:    http.StatusBadRequest,
	CodePayloadTooLarge:    http.StatusBadRequest,
	CodeUpstream:           http.StatusInternalServerError,
	CodeUnhandled:          http.StatusInternalServerError,
}

// HTTPStatus returns the response status for code, 500 for unknown codes.
func HTTPStatus(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// Error is a typed error carrying a user-visible message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error returns the message, with the cause appended when present.
func (e *Error) Error() string {
	if e == nil {
		return "api error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", msg, e.Cause.Error())
	}

	return msg
}

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs a typed error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a typed error around cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// As extracts the typed error from the chain.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}

	return nil, false
}

// IsCode reports whether the chain contains a typed error with code.
func IsCode(err error, code Code) bool {
	typed, ok := As(err)
	return ok && typed.Code == code
}

// From classifies any error, untyped errors become UNHANDLED.
func From(err error) *Error {
	if typed, ok := As(err); ok {
		return typed
	}

	return Wrap(err, CodeUnhandled, "internal server error")
}

var objectIDRegexp = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ParseObjectID validates an identifier taken from a request before it reaches the store.
// what names the identifier in the message, like "file" or "organization".
func ParseObjectID(raw, what string) (primitive.ObjectID, error) {
	if !objectIDRegexp.MatchString(raw) {
		return primitive.NilObjectID, Wrap(
			errors.Errorf("%s ID must be a valid MongoDB ObjectId", what),
			CodeInvalidIdentifier,
			fmt.Sprintf("Invalid %s ID format", what),
		)
	}

	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, Wrap(err, CodeInvalidIdentifier,
			fmt.Sprintf("Invalid %s ID format", what))
	}

	return id, nil
}
