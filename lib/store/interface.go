package store

// IStore is the interface for the shared key-value state. Implementations
// must be safe for concurrent use by many goroutines. Operations are
// infallible: a map mutation cannot fail, and I/O never happens inside
// the store.
type IStore interface {
	// Set inserts or updates a key-value pair unconditionally. Concurrent
	// writers to the same key resolve last-writer-wins.
	Set(key string, value []byte)
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found.
	Get(key string) (value []byte, loaded bool)
	// Len returns the number of stored keys.
	Len() int
}
