// Package storage defines access to the single JSON file backing the store.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Provider is the interface for the backing file.
type Provider interface {
	// Path returns the absolute path of the file.
	Path() string
	// Read returns the whole file content.
	Read() ([]byte, error)
	// Write atomically replaces the whole file content.
	Write(content []byte) error
	// Stat returns the current change stamp of the file.
	Stat() (Stamp, error)
}

// Stamp identifies one on-disk version of the file. Size is part of the
// stamp so that two writes within the file system's mtime granularity are
// still told apart in the common case.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether both stamps describe the same file version.
func (s Stamp) Equal(o Stamp) bool {
	return s.ModTime.Equal(o.ModTime) && s.Size == o.Size
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
