package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies a domain error for the request-handling boundary.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION"
	KindConflict        Kind = "CONFLICT"
	KindForbidden       Kind = "FORBIDDEN"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
)

// Error is a business error raised by the services. IDs carries the offending
// identifiers of a batched validation. Code overrides the API code derived from Kind.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	IDs     []string
	cause   error
}

func (e *Error) Error() string {
	if len(e.IDs) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.IDs, ", "))
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewNotFound(message string) *Error        { return New(KindNotFound, message) }
func NewValidation(message string) *Error      { return New(KindValidation, message) }
func NewConflict(message string) *Error        { return New(KindConflict, message) }
func NewForbidden(message string) *Error       { return New(KindForbidden, message) }
func NewUnauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

// WithCode returns a copy of e answering with the given API code.
func (e *Error) WithCode(code string) *Error {
	out := *e
	out.Code = code
	return &out
}

// WithIDs returns a copy of sentinel naming ids. errors.Is(result, sentinel) holds.
func WithIDs(sentinel *Error, ids ...string) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: sentinel.Message,
		IDs:     append([]string(nil), ids...),
		cause:   sentinel,
	}
}

// Wrap returns a copy of sentinel that also wraps cause.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: sentinel.Message,
		cause:   stderrors.Join(sentinel, cause),
	}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (Kind, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Kind, true
	}
	return "", false
}

// Is reports whether err carries a domain error of kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// StatusCode maps a kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func apiCode(kind Kind) string {
	switch kind {
	case KindNotFound:
		return ErrCodeNotFound
	case KindValidation:
		return ErrCodeInvalidInput
	case KindConflict:
		return ErrCodeConflict
	case KindForbidden:
		return ErrCodeForbidden
	case KindUnauthenticated:
		return ErrCodeUnauthorized
	default:
		return ErrCodeInternalError
	}
}

// Respond writes err as an API error response. Errors outside the domain
// taxonomy are logged and reported as 500.
func Respond(c *gin.Context, err error) {
	var domainErr *Error
	if !stderrors.As(err, &domainErr) {
		zap.L().Error("unhandled error", zap.String("route", c.FullPath()), zap.Error(err))
		InternalError(c, "")
		return
	}

	code := domainErr.Code
	if code == "" {
		code = apiCode(domainErr.Kind)
	}
	apiErr := NewAPIError(code, domainErr.Message)
	if len(domainErr.IDs) > 0 {
		apiErr.Details = gin.H{"ids": domainErr.IDs}
	}
	RespondWithError(c, StatusCode(domainErr.Kind), apiErr)
}
