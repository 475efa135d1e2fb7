package store

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the local key-value map every node keeps. Implementations must be
// safe for concurrent use. They give no ordering guarantees of their own:
// ordering between writes is established by the replication layer.
type IStore interface {
	// Get returns the value for a key. The boolean reports whether the key was set.
	Get(key string) (value string, loaded bool)
	// Put inserts or updates a key and returns the previous value, if any.
	Put(key, value string) (previous string, loaded bool)
	// Delete removes a key and returns the value it had, if any.
	Delete(key string) (previous string, loaded bool)
	// Entries returns a point-in-time copy of all key-value pairs.
	Entries() map[string]string
	// Replace discards the current contents and loads entries instead.
	Replace(entries map[string]string)
	// Len returns the number of keys.
	Len() int
	// Save persists the full contents to path.
	Save(path string) error
}
