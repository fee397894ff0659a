package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidReference is returned for references that escape the base directory.
	ErrInvalidReference = errors.New("invalid attachment reference")
	// ErrReferenceExists is returned when a reference is already taken; stored files are immutable.
	ErrReferenceExists = errors.New("attachment reference already exists")
)

const (
	dirMode  fs.FileMode = 0o750
	fileMode fs.FileMode = 0o640
)

// LocalStorage keeps attachment documents under one base directory. References
// are slash-separated paths relative to it.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	root, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %q: %w", baseDir, err)
	}
	if err := os.MkdirAll(root, dirMode); err != nil {
		return nil, fmt.Errorf("storage: create %q: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// SaveStream writes r to a temporary file and links it into place, so readers
// never observe a partial document.
func (s *LocalStorage) SaveStream(reference string, r io.Reader) (string, error) {
	path, err := s.resolve(reference)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("storage: create %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("storage: write %q: %w", reference, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("storage: chmod %q: %w", reference, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("storage: sync %q: %w", reference, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close %q: %w", reference, err)
	}
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", ErrReferenceExists
		}
		return "", fmt.Errorf("storage: publish %q: %w", reference, err)
	}
	return filepath.ToSlash(filepath.Clean(reference)), nil
}

// Open returns the stored file for reading. The caller closes it.
func (s *LocalStorage) Open(reference string) (*os.File, error) {
	path, err := s.resolve(reference)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", reference, err)
	}
	return f, nil
}

// Exists reports whether reference names a stored regular file.
func (s *LocalStorage) Exists(reference string) bool {
	path, err := s.resolve(reference)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *LocalStorage) resolve(reference string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimSpace(reference)))
	if rel == "." || filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", ErrInvalidReference
	}
	return filepath.Join(s.root, rel), nil
}
