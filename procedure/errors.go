package procedure

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine readable code a procedure error carries.
type Code string

const (
	CodeParseError           Code = "PARSE_ERROR"
	CodeBadRequest           Code = "BAD_REQUEST"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeMethodNotSupported   Code = "METHOD_NOT_SUPPORTED"
	CodeTimeout              Code = "TIMEOUT"
	CodeConflict             Code = "CONFLICT"
	CodePreconditionFailed   Code = "PRECONDITION_FAILED"
	CodePayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	CodeUnprocessableContent Code = "UNPROCESSABLE_CONTENT"
	CodeTooManyRequests      Code = "TOO_MANY_REQUESTS"
	CodeClientClosedRequest  Code = "CLIENT_CLOSED_REQUEST"
	CodeInternalServerError  Code = "INTERNAL_SERVER_ERROR"
	CodeNotImplemented       Code = "NOT_IMPLEMENTED"
)

type codeInfo struct {
	httpStatus  int
	jsonRPCCode int
}

var codes = map[Code]codeInfo{
	CodeParseError:           {http.StatusBadRequest, -32700},
	CodeBadRequest:           {http.StatusBadRequest, -32600},
	CodeUnauthorized:         {http.StatusUnauthorized, -32001},
	CodeForbidden:            {http.StatusForbidden, -32003},
	CodeNotFound:             {http.StatusNotFound, -32004},
	CodeMethodNotSupported:   {http.StatusMethodNotAllowed, -32005},
	CodeTimeout:              {http.StatusRequestTimeout, -32008},
	CodeConflict:             {http.StatusConflict, -32009},
	CodePreconditionFailed:   {http.StatusPreconditionFailed, -32012},
	CodePayloadTooLarge:      {http.StatusRequestEntityTooLarge, -32013},
	CodeUnprocessableContent: {http.StatusUnprocessableEntity, -32022},
	CodeTooManyRequests:      {http.StatusTooManyRequests, -32029},
	CodeClientClosedRequest:  {499, -32099},
	CodeInternalServerError:  {http.StatusInternalServerError, -32603},
	CodeNotImplemented:       {http.StatusNotImplemented, -32603},
}

// HTTPStatus returns the HTTP status associated with the code.
// Unknown codes map to 500.
func (c Code) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.httpStatus
	}
	return http.StatusInternalServerError
}

// JSONRPCCode returns the JSON-RPC error code associated with the code.
func (c Code) JSONRPCCode() int {
	if info, ok := codes[c]; ok {
		return info.jsonRPCCode
	}
	return codes[CodeInternalServerError].jsonRPCCode
}

// CodeFromJSONRPC maps a JSON-RPC error code back to a procedure code.
// INTERNAL_SERVER_ERROR wins over NOT_IMPLEMENTED since both share -32603.
func CodeFromJSONRPC(jsonRPCCode int) Code {
	if jsonRPCCode == codes[CodeInternalServerError].jsonRPCCode {
		return CodeInternalServerError
	}
	for code, info := range codes {
		if info.jsonRPCCode == jsonRPCCode {
			return code
		}
	}
	return CodeInternalServerError
}

// ErrorName is the name reported for procedure errors.
const ErrorName = "RPCError"

// Error is the exception a procedure raises on the server side.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// NewError builds a procedure error with the given code.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf builds a procedure error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError converts any error into a procedure error. Procedure errors are
// returned unchanged, anything else becomes INTERNAL_SERVER_ERROR.
func WrapError(err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return &Error{Code: CodeInternalServerError, Message: err.Error(), Cause: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Name returns ErrorName.
func (e *Error) Name() string {
	return ErrorName
}

// StatusCode returns the HTTP status for the error code.
func (e *Error) StatusCode() int {
	return e.Code.HTTPStatus()
}

// HTTPStatusFromError maps an error to an HTTP status code.
// Errors that are not procedure errors map to 500.
func HTTPStatusFromError(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.StatusCode()
	}
	return http.StatusInternalServerError
}
