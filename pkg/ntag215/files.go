package ntag215

import "os"

// Files is the whole-buffer file access the pipelines persist through.
type Files interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// OSFiles reads and writes the local filesystem.
type OSFiles struct{}

func (OSFiles) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (OSFiles) WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0o644)
}
