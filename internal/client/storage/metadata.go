package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// ReplicaID returns the persistent replica identifier of this client.
	// The identifier is generated on first call and never changes afterwards.
	ReplicaID(ctx context.Context) (string, error)
}
