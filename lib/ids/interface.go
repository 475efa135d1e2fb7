package ids

// IIdSource returns integers strictly greater than any value it returned before.
type IIdSource interface {
	// Next returns the next id.
	Next() (int64, error)
	// Close releases the resources held by the source.
	Close() error
}
