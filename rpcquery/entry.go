package rpcquery

import (
	"io"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-rpc-query/cache"
	"github.com/goliatone/go-rpc-query/procedure"
	"github.com/goliatone/go-rpc-query/query"
)

var reducerPathPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CreateOptions configures CreateAPI.
type CreateOptions struct {
	// Client is required: Ready(client), FromHTTP(url) or Deferred(factory).
	Client ClientSource

	ReducerPath string
	TagTypes    []string

	// EndpointOptions holds QueryOptions or MutationOptions keyed by endpoint name.
	EndpointOptions map[string]EndpointOptions

	Cache             cache.CacheService
	KeySerializer     cache.KeySerializer
	Logger            *slog.Logger
	Extra             any
	KeepUnusedDataFor time.Duration

	// Router, when set, registers every procedure up front.
	Router *procedure.Router
}

// Validate implements validation.Validatable.
func (o CreateOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Client, validation.Required),
		validation.Field(&o.ReducerPath, validation.Match(reducerPathPattern)),
		validation.Field(&o.TagTypes, validation.Each(validation.Required), validation.By(uniqueStrings)),
		validation.Field(&o.EndpointOptions, validation.By(endpointOptionsSet)),
	)
}

// EnhanceOptions configures EnhanceAPI.
type EnhanceOptions struct {
	// API is the existing api. Its endpoints and base query are kept.
	API *query.Api
	// Client is required: Ready(client), FromHTTP(url) or Deferred(factory).
	Client          ClientSource
	EndpointOptions map[string]EndpointOptions
	Logger          *slog.Logger
}

// Validate implements validation.Validatable.
func (o EnhanceOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.API, validation.Required),
		validation.Field(&o.Client, validation.Required),
		validation.Field(&o.EndpointOptions, validation.By(endpointOptionsSet)),
	)
}

// CreateAPI builds a new api whose base query invokes procedures through the
// client. Generated endpoints describe their call and let the base query run it.
func CreateAPI(opts CreateOptions) (*API, error) {
	if err := opts.Validate(); err != nil {
		return nil, invalidOptions(err)
	}

	logger := loggerOrDiscard(opts.Logger)
	invoker := NewInvoker(opts.Client, logger)

	base, err := query.New(query.Options{
		ReducerPath:       opts.ReducerPath,
		TagTypes:          opts.TagTypes,
		BaseQuery:         invoker.BaseQuery(),
		Cache:             opts.Cache,
		KeySerializer:     opts.KeySerializer,
		Logger:            logger,
		Extra:             opts.Extra,
		KeepUnusedDataFor: opts.KeepUnusedDataFor,
	})
	if err != nil {
		return nil, err
	}

	reg := &registrar{
		api:     base,
		invoker: invoker,
		mode:    functionCall,
		options: opts.EndpointOptions,
		logger:  base.Logger(),
	}
	api := newAPI(base, reg, base.Logger())
	if err := api.RegisterRouter(opts.Router); err != nil {
		return nil, err
	}
	return api, nil
}

// EnhanceAPI wraps an existing api. Endpoints it already declares keep their
// own base query; generated endpoints call procedures directly.
func EnhanceAPI(opts EnhanceOptions) (*API, error) {
	if err := opts.Validate(); err != nil {
		return nil, invalidOptions(err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = opts.API.Logger()
	}
	invoker := NewInvoker(opts.Client, logger)

	reg := &registrar{
		api:     opts.API,
		invoker: invoker,
		mode:    directCall,
		options: opts.EndpointOptions,
		logger:  logger,
	}
	return newAPI(opts.API, reg, logger), nil
}

func invalidOptions(err error) error {
	return errors.FromOzzoValidation(err, "invalid rpc api options").WithTextCode("INVALID_OPTIONS")
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

func uniqueStrings(value any) error {
	values, _ := value.([]string)
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return validation.NewError("validation_not_unique", "must not contain duplicates")
		}
		seen[v] = struct{}{}
	}
	return nil
}

func endpointOptionsSet(value any) error {
	opts, _ := value.(map[string]EndpointOptions)
	for name, o := range opts {
		if name == "" {
			return validation.NewError("validation_empty_name", "endpoint names cannot be blank")
		}
		if o == nil {
			return validation.NewError("validation_nil_options", "options for "+name+" cannot be nil")
		}
	}
	return nil
}
