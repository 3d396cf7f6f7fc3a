package ntag215test

import (
	"fmt"
	"io/fs"
	"sync"
)

// Files is an in-memory ntag215.Files.
type Files struct {
	mu sync.Mutex
	m  map[string][]byte

	// WriteErr, when set, is returned by WriteFile.
	WriteErr error
}

// NewFiles returns an empty in-memory store.
func NewFiles() *Files {
	return &Files{m: make(map[string][]byte)}
}

func (f *Files) ReadFile(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.m[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), b...), nil
}

func (f *Files) WriteFile(name string, data []byte) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[name] = append([]byte(nil), data...)
	return nil
}

// Exists reports whether name was written.
func (f *Files) Exists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.m[name]
	return ok
}
