// Package cache stores the results of endpoint calls.
//
// # Overview
//
// The package exports two interfaces and their default implementations:
//
//   - CacheService: read-through storage for endpoint results, backed by sturdyc
//   - KeySerializer: builds stable cache keys from an endpoint name and its arguments
//
// The query package keys every cache entry as
//
//	serializer.SerializeKey(reducerPath + "::" + endpointName, args)
//
// so that every entry of one api shares the reducer path prefix and can be
// dropped with DeleteByPrefix.
//
// # Basic Usage
//
//	service, err := cache.NewCacheService(cache.DefaultConfig())
//	serializer := cache.NewDefaultKeySerializer()
//
//	key := serializer.SerializeKey("api::getUserById", 1)
//	user, err := cache.GetOrFetch(ctx, service, key, func(ctx context.Context) (User, error) {
//		return client.GetUser(ctx, 1)
//	})
//
// Concurrent GetOrFetch calls for one key share a single fetch. Errors returned
// by the fetch function are handed back to every waiting caller and are not
// stored.
//
// # Key Serialization Strategy
//
//   - Basic types: direct string representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: key-value pairs sorted by serialized key
//   - Structs: exported fields as name:value pairs
//   - Pointers: the pointed-to value, so &args and args share a key
//   - Functions and channels: %p formatting, stable only within one process
//
// NewHashingKeySerializer keeps keys short by replacing the serialized
// arguments of oversized keys with an xxhash digest.
package cache
