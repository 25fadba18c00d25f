package storage

// NewJSONRepository opens the JSON-file backed repository at path.
func NewJSONRepository(path string, opts ...Option) (Repository, error) {
	return NewStorage(path, opts...)
}
