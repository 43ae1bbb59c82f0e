package boltdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/flowsync/internal/client/storage"
)

const (
	keyReplicaID = "replica_id"
)

// ReplicaID returns the persistent replica identifier, generating it on first use
func (s *Storage) ReplicaID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var replicaID string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if existing := bucket.Get([]byte(keyReplicaID)); existing != nil {
			replicaID = string(existing)
			return nil
		}

		// Первый запуск - создаем идентификатор реплики
		replicaID = uuid.New().String()
		if err := bucket.Put([]byte(keyReplicaID), []byte(replicaID)); err != nil {
			return fmt.Errorf("failed to save replica id: %w", err)
		}

		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get replica id: %w", err)
	}

	return replicaID, nil
}
