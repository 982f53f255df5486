package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/google/uuid"
	"github.com/gorilla/rpc/v2/json2"
)

const (
	// KindHeader carries the procedure kind so the server can reject mismatches.
	KindHeader = "X-RPC-Kind"
	// RequestIDHeader carries the request id of the call.
	RequestIDHeader = "X-Request-ID"
)

// HeaderFunc returns headers computed per call, e.g. an auth token.
type HeaderFunc func(ctx context.Context) (http.Header, error)

// HTTPClient speaks JSON-RPC 2.0 over HTTP to a Handler.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	header     http.Header
	headerFunc HeaderFunc
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHeaders sets static headers sent with every call.
func WithHeaders(header http.Header) HTTPClientOption {
	return func(c *HTTPClient) {
		c.header = header.Clone()
	}
}

// WithHeaderFunc sets a function evaluated on every call for extra headers.
func WithHeaderFunc(fn HeaderFunc) HTTPClientOption {
	return func(c *HTTPClient) {
		c.headerFunc = fn
	}
}

// NewHTTPClient creates a client posting to endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query implements Client.
func (c *HTTPClient) Query(ctx context.Context, path string, input any, opts ...CallOption) (any, error) {
	return c.do(ctx, procedure.KindQuery, path, input, NewCallOptions(opts...))
}

// Mutation implements Client.
func (c *HTTPClient) Mutation(ctx context.Context, path string, input any, opts ...CallOption) (any, error) {
	return c.do(ctx, procedure.KindMutation, path, input, NewCallOptions(opts...))
}

func (c *HTTPClient) do(ctx context.Context, kind procedure.Kind, path string, input any, opts CallOptions) (any, error) {
	body, err := json2.EncodeClientRequest(path, input)
	if err != nil {
		return nil, c.transportError(path, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.transportError(path, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(KindHeader, string(kind))

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)

	mergeHeader(req.Header, c.header)
	if c.headerFunc != nil {
		extra, err := c.headerFunc(ctx)
		if err != nil {
			return nil, c.transportError(path, "failed to resolve headers", err)
		}
		mergeHeader(req.Header, extra)
	}
	mergeHeader(req.Header, opts.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cerr := c.transportError(path, "request failed", err)
		if ctx.Err() != nil {
			cerr.Code = procedure.CodeClientClosedRequest
		}
		return nil, cerr
	}
	defer resp.Body.Close()

	var reply any
	err = json2.DecodeClientResponse(resp.Body, &reply)
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, json2.ErrNullResult):
		return nil, nil
	}

	var jerr *json2.Error
	if errors.As(err, &jerr) {
		return nil, clientErrorFromJSON(path, resp.StatusCode, jerr)
	}

	cerr := c.transportError(path, fmt.Sprintf("invalid response (status %d)", resp.StatusCode), err)
	cerr.HTTPStatus = resp.StatusCode
	return nil, cerr
}

func (c *HTTPClient) transportError(path, message string, err error) *ClientError {
	return &ClientError{
		Message: message + ": " + err.Error(),
		Code:    procedure.CodeInternalServerError,
		Path:    path,
		Cause:   err,
	}
}

func mergeHeader(dst, src http.Header) {
	for key, values := range src {
		dst.Del(key)
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
