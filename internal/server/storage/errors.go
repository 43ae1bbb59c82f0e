package storage

import "errors"

// Common storage errors
var (
	// ErrSnapshotNotFound indicates that room has no stored snapshot
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
