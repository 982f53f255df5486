package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/gorilla/rpc/v2/json2"
)

// Handler serves a procedure router over JSON-RPC 2.0.
//
// Unlike gorilla's rpc.Server, which dispatches "Service.Method" pairs, the
// JSON-RPC method is the full dotted procedure path.
type Handler struct {
	router      *procedure.Router
	codec       *json2.Codec
	contextFunc func(r *http.Request) (context.Context, error)
	logger      *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRequestContext derives the procedure context from the incoming request.
func WithRequestContext(fn func(r *http.Request) (context.Context, error)) HandlerOption {
	return func(h *Handler) {
		h.contextFunc = fn
	}
}

// WithHandlerLogger sets the logger used for failed calls.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler returns an http.Handler serving router.
func NewHandler(router *procedure.Router, opts ...HandlerOption) *Handler {
	h := &Handler{
		router: router,
		codec:  json2.NewCodec(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "rpc: POST method required, received "+r.Method, http.StatusMethodNotAllowed)
		return
	}

	req := h.codec.NewRequest(r)
	path, err := req.Method()
	if err != nil {
		req.WriteError(w, http.StatusBadRequest, err)
		return
	}

	p, ok := h.router.Lookup(path)
	if !ok {
		h.writeError(w, req, path, procedure.Errorf(procedure.CodeNotFound, "no procedure found on path %q", path))
		return
	}

	if kind := procedure.Kind(r.Header.Get(KindHeader)); kind != "" && kind != p.Kind() {
		h.writeError(w, req, path, procedure.Errorf(procedure.CodeMethodNotSupported,
			"procedure %q is a %s, called as a %s", path, p.Kind(), kind))
		return
	}

	input := p.NewInput()
	if err := req.ReadRequest(input); err != nil {
		h.writeError(w, req, path, &procedure.Error{
			Code:    procedure.CodeBadRequest,
			Message: err.Error(),
			Cause:   err,
		})
		return
	}

	ctx := r.Context()
	if id := r.Header.Get(RequestIDHeader); id != "" {
		ctx = WithRequestID(ctx, id)
	}
	if h.contextFunc != nil {
		derived, err := h.contextFunc(r.WithContext(ctx))
		if err != nil {
			h.writeError(w, req, path, procedure.WrapError(err))
			return
		}
		ctx = derived
	}

	out, err := p.Call(ctx, input)
	if err != nil {
		var perr *procedure.Error
		if !errors.As(err, &perr) {
			perr = procedure.WrapError(err)
		}
		h.writeError(w, req, path, perr)
		return
	}

	req.WriteResponse(w, out)
}

type errorWriter interface {
	WriteError(w http.ResponseWriter, status int, err error)
}

func (h *Handler) writeError(w http.ResponseWriter, req errorWriter, path string, perr *procedure.Error) {
	h.logger.Debug("procedure call failed",
		"path", path,
		"code", string(perr.Code),
		"error", perr.Error(),
	)
	req.WriteError(w, perr.StatusCode(), jsonErrorFromProcedure(path, perr))
}
