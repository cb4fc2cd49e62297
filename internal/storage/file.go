package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/starford/notifsync/internal/apperr"
)

// File implements Provider backed by a file on the local file system.
type File struct {
	path string // absolute
}

// NewFile creates a File provider for path. The parent directory is created
// if needed; the file itself may not exist yet.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: path is a directory: %s", abs)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute file path.
func (f *File) Path() string {
	return f.path
}

// Read returns the raw bytes of the file. A missing file yields an
// *apperr.IOError wrapping fs.ErrNotExist.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &apperr.IOError{Op: "read", Path: f.path, Err: err}
	}
	return data, nil
}

// Write replaces the file content via temp file, fsync and rename, so readers
// only ever observe the old or the new content.
func (f *File) Write(content []byte) error {
	_, statErr := os.Stat(f.path)
	if err := atomic.WriteFile(f.path, bytes.NewReader(content)); err != nil {
		return &apperr.IOError{Op: "write", Path: f.path, Err: err}
	}
	// The temp file is created 0600; widen it when the file is new.
	if os.IsNotExist(statErr) {
		if err := os.Chmod(f.path, 0o644); err != nil {
			return &apperr.IOError{Op: "chmod", Path: f.path, Err: err}
		}
	}
	return nil
}

// Stat returns the modification time and size of the file.
func (f *File) Stat() (Stamp, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return Stamp{}, &apperr.IOError{Op: "stat", Path: f.path, Err: err}
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, nil
}
