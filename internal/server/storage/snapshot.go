package storage

import (
	"context"
	"time"
)

//go:generate moq -out snapshot_mock.go . SnapshotStorage

// SnapshotStorage defines interface for room document persistence.
// Snapshot is the full encoded state of the room replica.
type SnapshotStorage interface {
	// SaveSnapshot creates or replaces the snapshot of a room
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// LoadSnapshot retrieves the snapshot of a room
	// Returns ErrSnapshotNotFound if room was never persisted
	LoadSnapshot(ctx context.Context, room string) (*Snapshot, error)

	// DeleteSnapshot removes the snapshot of a room
	// Returns ErrSnapshotNotFound if room was never persisted
	DeleteSnapshot(ctx context.Context, room string) error

	// ListRooms returns all persisted rooms ordered by name
	ListRooms(ctx context.Context) ([]string, error)
}

// Snapshot persisted room state
type Snapshot struct {
	UpdatedAt  time.Time
	Room       string
	Data       []byte
	TextLength int
}
