package storage

import "context"

//go:generate moq -out documentstorage_mock.go . DocumentStorage

// DocumentStorage defines interface for the local copy of collaborative documents.
// Snapshot is the last-known-good full state; pending updates are local edits
// made while the session was not synced.
type DocumentStorage interface {
	// SaveSnapshot stores the full encoded state of the document
	SaveSnapshot(ctx context.Context, documentID string, snapshot []byte) error

	// LoadSnapshot returns the stored snapshot
	// Returns ErrDocumentNotFound if nothing was saved yet
	LoadSnapshot(ctx context.Context, documentID string) ([]byte, error)

	// AppendPending adds an encoded local update to the offline queue
	AppendPending(ctx context.Context, documentID string, update []byte) error

	// PendingUpdates returns queued updates in the order they were appended
	PendingUpdates(ctx context.Context, documentID string) ([][]byte, error)

	// ClearPending removes all queued updates of the document
	ClearPending(ctx context.Context, documentID string) error

	// ListDocuments returns ids of all documents with a stored snapshot
	ListDocuments(ctx context.Context) ([]string, error)
}
