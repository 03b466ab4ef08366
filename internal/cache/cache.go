package cache

// Cache is the session-scoped response cache consumed by the remote gateway
// and the enrichment pipeline. Entries never expire and are never invalidated
// within a session; implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}
