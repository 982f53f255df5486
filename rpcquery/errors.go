package rpcquery

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/rpc"
)

// ErrorKind discriminates NormalizedError.
type ErrorKind string

const (
	KindClientError  ErrorKind = "client-error"
	KindServerError  ErrorKind = "server-error"
	KindUnknownError ErrorKind = "unknown-error"
)

// NormalizedError is the only error an invocation ever reports.
//
// client-error comes from the transport client (*rpc.ClientError),
// server-error from a procedure raising *procedure.Error, and unknown-error
// from anything else, panics included. Raw is the stringified original error.
type NormalizedError struct {
	Kind       ErrorKind
	Name       string
	Message    string
	StatusCode int
	Code       procedure.Code
	Raw        string
	Path       string
	RequestID  string
	Cause      error
}

func (e *NormalizedError) Error() string {
	if e.Kind == KindUnknownError {
		return fmt.Sprintf("%s: %s", e.Kind, e.Raw)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Name, e.Message)
}

func (e *NormalizedError) Unwrap() error {
	return e.Cause
}

// Rich converts the error into a go-errors value for logging and responses.
func (e *NormalizedError) Rich() *errors.Error {
	category := errors.CategoryExternal
	if e.StatusCode > 0 {
		category = errors.HTTPStatusToCategory(e.StatusCode)
	}

	message := e.Message
	if message == "" {
		message = e.Raw
	}

	textCode := string(e.Code)
	if textCode == "" {
		textCode = strings.ToUpper(strings.ReplaceAll(string(e.Kind), "-", "_"))
	}

	rich := errors.New(message, category).
		WithTextCode(textCode).
		WithRequestID(e.RequestID).
		WithMetadata(map[string]any{
			"kind": string(e.Kind),
			"name": e.Name,
			"path": e.Path,
		})
	if e.StatusCode > 0 {
		rich = rich.WithCode(e.StatusCode)
	}
	rich.Source = e.Cause
	return rich
}

// AsNormalized extracts a NormalizedError from err.
func AsNormalized(err error) (*NormalizedError, bool) {
	var nerr *NormalizedError
	ok := errors.As(err, &nerr)
	return nerr, ok
}

// Normalize classifies err. A NormalizedError is returned unchanged.
func Normalize(err error) *NormalizedError {
	if err == nil {
		return nil
	}
	if nerr, ok := AsNormalized(err); ok {
		return nerr
	}

	var cerr *rpc.ClientError
	if errors.As(err, &cerr) {
		return &NormalizedError{
			Kind:       KindClientError,
			Name:       cerr.Name(),
			Message:    cerr.Message,
			StatusCode: cerr.StatusCode(),
			Code:       cerr.Code,
			Raw:        err.Error(),
			Path:       cerr.Path,
			Cause:      err,
		}
	}

	var perr *procedure.Error
	if errors.As(err, &perr) {
		return &NormalizedError{
			Kind:       KindServerError,
			Name:       perr.Name(),
			Message:    perr.Error(),
			StatusCode: procedure.HTTPStatusFromError(perr),
			Code:       perr.Code,
			Raw:        err.Error(),
			Cause:      err,
		}
	}

	return &NormalizedError{
		Kind:  KindUnknownError,
		Raw:   err.Error(),
		Cause: err,
	}
}

func normalizePanic(r any) *NormalizedError {
	if err, ok := r.(error); ok {
		nerr := Normalize(err)
		if nerr.Kind != KindUnknownError {
			return nerr
		}
	}
	return &NormalizedError{
		Kind:       KindUnknownError,
		Raw:        fmt.Sprint(r),
		StatusCode: http.StatusInternalServerError,
	}
}

const (
	textCodeUnknownAccessor = "UNKNOWN_ACCESSOR"
	textCodeLibraryError    = "LIBRARY_ERROR"
)

// namingError reports an accessor that cannot be mapped to an endpoint.
func namingError(format string, args ...any) *errors.Error {
	return errors.New(fmt.Sprintf(format, args...), errors.CategoryBadInput).
		WithTextCode(textCodeUnknownAccessor)
}

// libraryError reports a broken internal invariant.
func libraryError(format string, args ...any) *errors.Error {
	return errors.New("library error: "+fmt.Sprintf(format, args...), errors.CategoryInternal).
		WithTextCode(textCodeLibraryError).
		WithSeverity(errors.SeverityCritical)
}

// IsNamingError reports whether err was returned for an unknown accessor.
func IsNamingError(err error) bool {
	return hasTextCode(err, textCodeUnknownAccessor)
}

// IsLibraryError reports whether err is an internal invariant failure.
func IsLibraryError(err error) bool {
	return hasTextCode(err, textCodeLibraryError)
}

func hasTextCode(err error, code string) bool {
	var rich *errors.Error
	return errors.As(err, &rich) && rich.TextCode == code
}
