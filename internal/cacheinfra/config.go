package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is how long an endpoint result stays cached after it was fetched.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures background refreshes of cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage enables storage for missing record flags.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// Validate implements validation.Validatable.
func (e EarlyRefreshConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.MaxAsyncRefreshTime, validation.Min(e.MinAsyncRefreshTime)),
		validation.Field(&e.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

// DefaultConfig returns the defaults used for endpoint result caches.
// Entries live 60 seconds. Early refresh stays off because a background
// refresh would call procedures nobody is subscribed to.
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            256,
		TTL:                  60 * time.Second,
		EvictionPercentage:   10,
		EarlyRefresh:         nil,
		MissingRecordStorage: false,
		EvictionInterval:     0,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required.Error("must be greater than 0"), validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required.Error("must be greater than 0"), validation.Min(1)),
		validation.Field(&c.TTL, validation.Required.Error("must be greater than 0"), validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"),
		),
		validation.Field(&c.EarlyRefresh),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return errors.FromOzzoValidation(err, "invalid cache configuration").
			WithTextCode("INVALID_CACHE_CONFIG")
	}
	return nil
}
