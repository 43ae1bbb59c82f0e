package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/flowsync/internal/client/storage"
)

// SaveSnapshot stores the full encoded state of the document
func (s *Storage) SaveSnapshot(ctx context.Context, documentID string, snapshot []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		if err := bucket.Put([]byte(documentID), snapshot); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// LoadSnapshot returns the stored snapshot of the document
func (s *Storage) LoadSnapshot(ctx context.Context, documentID string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var snapshot []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		data := bucket.Get([]byte(documentID))
		if data == nil {
			return storage.ErrDocumentNotFound
		}

		// Данные bbolt валидны только внутри транзакции
		snapshot = append([]byte(nil), data...)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// AppendPending adds an encoded local update to the offline queue
func (s *Storage) AppendPending(ctx context.Context, documentID string, update []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketPending)
		if root == nil {
			return fmt.Errorf("pending bucket not found")
		}

		bucket, err := root.CreateBucketIfNotExists([]byte(documentID))
		if err != nil {
			return fmt.Errorf("failed to create document queue: %w", err)
		}

		// Ключ - монотонный номер, поэтому курсор отдает обновления по порядку
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := bucket.Put(key, update); err != nil {
			return fmt.Errorf("failed to append update: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// PendingUpdates returns queued updates in the order they were appended
func (s *Storage) PendingUpdates(ctx context.Context, documentID string) ([][]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var updates [][]byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketPending)
		if root == nil {
			return fmt.Errorf("pending bucket not found")
		}

		bucket := root.Bucket([]byte(documentID))
		if bucket == nil {
			// Очередь пуста
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			updates = append(updates, append([]byte(nil), v...))
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read pending updates: %w", err)
	}

	return updates, nil
}

// ClearPending removes all queued updates of the document
func (s *Storage) ClearPending(ctx context.Context, documentID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketPending)
		if root == nil {
			return fmt.Errorf("pending bucket not found")
		}

		if root.Bucket([]byte(documentID)) == nil {
			return nil
		}

		if err := root.DeleteBucket([]byte(documentID)); err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ListDocuments returns ids of all documents with a stored snapshot
func (s *Storage) ListDocuments(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ids []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSnapshots)
		if bucket == nil {
			return fmt.Errorf("snapshots bucket not found")
		}

		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return ids, nil
}
