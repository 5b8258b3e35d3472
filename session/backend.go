package session

// Backend is a single storage tier holding session key/value pairs.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Set stores a value under key, replacing any previous value.
	Set(key, value string) error

	// Get returns the stored value, or internal/errors.ErrNotFound when the
	// key is absent.
	Get(key string) (string, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error

	// Clear removes every key held by the tier.
	Clear() error

	// Close releases any resources held by the tier.
	Close() error
}
