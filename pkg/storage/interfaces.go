package storage

// Store persists named JSON documents.
type Store interface {
	// Save marshals v and writes it as the named document, replacing any
	// previous content.
	Save(name string, v interface{}) error

	// Load reads the named document into v. A missing document returns an
	// error satisfying errors.Is(err, fs.ErrNotExist).
	Load(name string, v interface{}) error
}
