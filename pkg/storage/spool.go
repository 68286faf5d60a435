package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Spool keeps downloaded timetable files on disk under a base directory
// until they are hashed and parsed, then lets the caller discard them.
type Spool struct {
	baseDir string
}

// NewSpool ensures the base directory exists and returns a handle.
func NewSpool(baseDir string) (*Spool, error) {
	if baseDir == "" {
		baseDir = "./downloads"
	}
	baseDir = filepath.Clean(baseDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	return &Spool{baseDir: baseDir}, nil
}

// Save writes the given bytes under the base dir and returns the full path.
func (s *Spool) Save(filename string, data []byte) (string, error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare download directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write downloaded file: %w", err)
	}
	return path, nil
}

// SaveStream copies from reader into the target file and returns the full path.
func (s *Spool) SaveStream(filename string, r io.Reader) (string, error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare download directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write spool stream: %w", err)
	}
	return path, nil
}

// Discard removes a spooled file if present.
func (s *Spool) Discard(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard spool file: %w", err)
	}
	return nil
}

// resolve accepts either a bare filename or a path Save already returned.
// Paths already under the base dir must not be joined a second time, or a
// relative base dir would produce downloads/downloads/<file>.
func (s *Spool) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	clean := filepath.Clean(filename)
	if clean == s.baseDir || strings.HasPrefix(clean, s.baseDir+string(filepath.Separator)) {
		return clean
	}
	return filepath.Join(s.baseDir, clean)
}
