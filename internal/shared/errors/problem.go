// Package errors renders order API failures as RFC 7807 Problem Details.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is the application/problem+json body.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy carrying the occurrence-specific message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

func (p ProblemDetail) WithInstance(instance string) ProblemDetail {
	p.Instance = instance
	return p
}

// WithExtension returns a copy with one more extension member. The receiver's
// map is never mutated, so package-level templates stay untouched.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	extensions := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		extensions[k] = v
	}
	extensions[key] = value
	p.Extensions = extensions
	return p
}

// Retryable reports whether the client may resend the same request unchanged.
func (p ProblemDetail) Retryable() bool {
	retryable, _ := p.Extensions["retryable"].(bool)
	return retryable
}

// Problem type URIs. Relative unless the responder carries a base URI.
const (
	TypeValidation          = "/problems/validation-error"
	TypeBadRequest          = "/problems/bad-request"
	TypeNotFound            = "/problems/not-found"
	TypeInsufficientStock   = "/problems/insufficient-stock"
	TypeInvalidTransition   = "/problems/invalid-transition"
	TypeConcurrencyExceeded = "/problems/concurrency-exceeded"
	TypeIdempotencyConflict = "/problems/idempotency-conflict"
	TypeUnavailable         = "/problems/service-unavailable"
	TypeInternal            = "/problems/internal-error"
)

var (
	ErrValidation = ProblemDetail{
		Type:   TypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
	}

	// ErrBadRequest covers bodies and parameters that could not be decoded at all.
	ErrBadRequest = ProblemDetail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	ErrNotFound = ProblemDetail{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
	}

	ErrInsufficientStock = ProblemDetail{
		Type:   TypeInsufficientStock,
		Title:  "Insufficient Stock",
		Status: http.StatusConflict,
	}

	ErrInvalidTransition = ProblemDetail{
		Type:   TypeInvalidTransition,
		Title:  "Invalid Status Transition",
		Status: http.StatusUnprocessableEntity,
	}

	// ErrConcurrencyExceeded means optimistic retries ran out; resending is safe.
	ErrConcurrencyExceeded = ProblemDetail{
		Type:       TypeConcurrencyExceeded,
		Title:      "Concurrent Update",
		Status:     http.StatusConflict,
		Extensions: map[string]any{"retryable": true},
	}

	ErrIdempotencyConflict = ProblemDetail{
		Type:   TypeIdempotencyConflict,
		Title:  "Idempotency Key Reused",
		Status: http.StatusConflict,
	}

	ErrUnavailable = ProblemDetail{
		Type:       TypeUnavailable,
		Title:      "Service Unavailable",
		Status:     http.StatusServiceUnavailable,
		Extensions: map[string]any{"retryable": true},
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}
)

// ForStatus picks the generic template for a transport-level status code.
func ForStatus(status int) ProblemDetail {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return ErrInternal
	}
}
