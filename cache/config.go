package cache

import (
	"github.com/goliatone/go-rpc-query/internal/cacheinfra"
)

// Config sizes the store holding endpoint results.
//
// TTL bounds how long a result is served without a request. Entries dropped
// earlier by an api's keep-unused timer are deleted from the store as well,
// so TTL only matters for entries that are still in use.
type Config cacheinfra.Config

// EarlyRefreshConfig enables background refreshes of results close to expiry.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// DefaultConfig returns the defaults for endpoint result caches: entries live
// for 60 seconds and are never refreshed in the background.
func DefaultConfig() Config {
	return Config(cacheinfra.DefaultConfig())
}

// Validate checks the configuration. Failures are validation category
// *errors.Error values from go-errors with one field error per invalid field.
func (c Config) Validate() error {
	return cacheinfra.Config(c).Validate()
}

// NewCacheService builds the sturdyc backed store.
func NewCacheService(cfg Config) (CacheService, error) {
	service, err := cacheinfra.NewSturdycService(cacheinfra.Config(cfg))
	if err != nil {
		return nil, err
	}
	return service, nil
}
