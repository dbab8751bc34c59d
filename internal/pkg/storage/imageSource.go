package storage

import (
	"io"
	"os"
	"path/filepath"
)

// ImageSource reads caller-supplied local image paths.
type ImageSource interface {
	Open(path string) (io.ReadCloser, error)
	Exists(path string) bool
}

type fileSource struct {
	basePath string
}

// NewImageSource roots relative and absolute paths under basePath. An empty
// basePath uses paths as given.
func NewImageSource(basePath string) ImageSource {
	return &fileSource{basePath: basePath}
}

func (s *fileSource) resolve(path string) string {
	if s.basePath == "" {
		return path
	}
	return filepath.Join(s.basePath, filepath.Clean("/"+path))
}

func (s *fileSource) Open(path string) (io.ReadCloser, error) {
	return os.Open(s.resolve(path))
}

func (s *fileSource) Exists(path string) bool {
	info, err := os.Stat(s.resolve(path))
	return err == nil && !info.IsDir()
}
