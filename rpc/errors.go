package rpc

import (
	"errors"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/gorilla/rpc/v2/json2"
)

// ClientErrorName is the name reported for client side failures.
const ClientErrorName = "RPCClientError"

// ClientError is raised by client transports, both for transport failures and
// for errors the server returned.
type ClientError struct {
	Message     string
	Code        procedure.Code
	JSONRPCCode int
	HTTPStatus  int
	Path        string
	Data        any
	Cause       error
}

func (e *ClientError) Error() string {
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Name returns the error class name.
func (e *ClientError) Name() string {
	return ClientErrorName
}

// StatusCode returns the HTTP status attached to the error, if any.
func (e *ClientError) StatusCode() int {
	return e.HTTPStatus
}

// IsClientError reports whether err is or wraps a *ClientError.
func IsClientError(err error) bool {
	var cerr *ClientError
	return errors.As(err, &cerr)
}

func clientErrorFromJSON(path string, status int, jerr *json2.Error) *ClientError {
	cerr := &ClientError{
		Message:     jerr.Message,
		JSONRPCCode: int(jerr.Code),
		HTTPStatus:  status,
		Path:        path,
		Data:        jerr.Data,
		Cause:       jerr,
	}

	data, _ := jerr.Data.(map[string]any)
	if code, ok := data["code"].(string); ok && code != "" {
		cerr.Code = procedure.Code(code)
	} else {
		cerr.Code = procedure.CodeFromJSONRPC(int(jerr.Code))
	}
	if s, ok := data["httpStatus"].(float64); ok && s > 0 {
		cerr.HTTPStatus = int(s)
	} else if cerr.HTTPStatus < 400 {
		cerr.HTTPStatus = cerr.Code.HTTPStatus()
	}
	return cerr
}

func jsonErrorFromProcedure(path string, perr *procedure.Error) *json2.Error {
	return &json2.Error{
		Code:    json2.ErrorCode(perr.Code.JSONRPCCode()),
		Message: perr.Error(),
		Data: map[string]any{
			"code":       string(perr.Code),
			"httpStatus": perr.StatusCode(),
			"path":       path,
		},
	}
}
