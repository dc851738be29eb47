package cache

import "time"

// Cache is a short-TTL cache for fetched order books. Selection preflight
// and the first worker iteration of a cycle read the same books; caching
// them avoids doubling the CLOB read load.
type Cache interface {
	// Get retrieves a value. Returns (value, true) if found.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value.
	Delete(key string)

	// Close releases resources.
	Close()
}
