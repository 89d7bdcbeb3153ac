// Package http provides the JSON API server and handler implementations.
//
// This file implements the Builder Pattern for constructing API responses.
// Every endpoint answers with the same envelope so clients can check a
// single success flag before reading data.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finay/internal/core"
)

// apiEnvelope is the uniform JSON shape every endpoint returns.
type apiEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building API responses.
type JSONResponseBuilder struct {
	statusCode int
	envelope   apiEnvelope
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   apiEnvelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the envelope payload.
func (b *JSONResponseBuilder) Data(data interface{}) *JSONResponseBuilder {
	b.envelope.Data = data
	return b
}

// Message sets the envelope message.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.envelope); err != nil {
		slog.Error("Failed encoding response envelope", "error", err)
	}
}

// ErrorResponse creates a standard error response with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode).Message(message)
	b.envelope.Success = false
	return b
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// ForbiddenError creates a 403 Forbidden error response.
func ForbiddenError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusForbidden, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// TooManyRequestsError creates a 429 response with a Retry-After hint.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", "60")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

var validationErrors = []error{
	core.ErrInvalidKind,
	core.ErrInvalidCategory,
	core.ErrInvalidAmount,
	core.ErrInvalidPayment,
	core.ErrInvalidStatus,
	core.ErrMissingOwner,
	core.ErrInvalidPeriod,
	core.ErrInvalidSort,
}

func isValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// writeDomainError maps ledger errors onto HTTP status codes. Anything
// not recognized is treated as an internal error and logged with the
// request context.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrAccountNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrForbidden):
		ForbiddenError(err.Error()).Write(w)
	case errors.Is(err, core.ErrAccountExists):
		ConflictError(err.Error()).Write(w)
	case isValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		slog.ErrorContext(r.Context(), "Handler error", "error", err, "url", r.URL.Path)
		InternalServerError("something went wrong").Write(w)
	}
}
