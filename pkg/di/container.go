package di

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-rpc-query/cache"
	"github.com/goliatone/go-rpc-query/query"
	"github.com/goliatone/go-rpc-query/rpcquery"
)

// Container owns the cache service, key serializer and logger shared by every
// api it builds. Apis built from one container share a single sturdyc cache;
// their keys stay apart because each is namespaced by its reducer path.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	logger        *slog.Logger
	config        cache.Config
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every api.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithKeySerializer replaces the default hashing key serializer.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Container) {
		if serializer != nil {
			c.keySerializer = serializer
		}
	}
}

// NewContainer creates a container whose cache service is built from config.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	cacheService, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}

	c := &Container{
		cacheService:  cacheService,
		keySerializer: cache.NewHashingKeySerializer(cache.NewDefaultKeySerializer(), query.DefaultMaxKeyLength),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		config:        config,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// NewContainerWithDefaults creates a container using cache.DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// CacheService returns the shared cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewBaseAPI builds a query.Api on the container cache. Cache, KeySerializer
// and Logger set in opts take precedence.
func (c *Container) NewBaseAPI(opts query.Options) (*query.Api, error) {
	if opts.Cache == nil {
		opts.Cache = c.cacheService
	}
	if opts.KeySerializer == nil {
		opts.KeySerializer = c.keySerializer
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	return query.New(opts)
}

// NewAPI builds an rpc api on the container cache. Cache, KeySerializer and
// Logger set in opts take precedence.
func (c *Container) NewAPI(opts rpcquery.CreateOptions) (*rpcquery.API, error) {
	if opts.Cache == nil {
		opts.Cache = c.cacheService
	}
	if opts.KeySerializer == nil {
		opts.KeySerializer = c.keySerializer
	}
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	return rpcquery.CreateAPI(opts)
}

// EnhanceAPI wraps api with generated rpc endpoints logging to the container
// logger.
func (c *Container) EnhanceAPI(opts rpcquery.EnhanceOptions) (*rpcquery.API, error) {
	if opts.Logger == nil {
		opts.Logger = c.logger
	}
	return rpcquery.EnhanceAPI(opts)
}
