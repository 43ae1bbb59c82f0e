package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/flowsync/internal/server/storage"
)

var _ storage.SnapshotStorage = (*Storage)(nil)

// SaveSnapshot creates or replaces the snapshot of a room
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot *storage.Snapshot) error {
	if snapshot == nil || snapshot.Room == "" {
		return fmt.Errorf("snapshot room is required")
	}

	updatedAt := snapshot.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO room_snapshots (room, data, text_length, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room) DO UPDATE SET
			data = excluded.data,
			text_length = excluded.text_length,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		snapshot.Room,
		snapshot.Data,
		snapshot.TextLength,
		updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot retrieves the snapshot of a room
func (s *Storage) LoadSnapshot(ctx context.Context, room string) (*storage.Snapshot, error) {
	query := `
		SELECT room, data, text_length, updated_at
		FROM room_snapshots
		WHERE room = ?
	`

	var (
		snapshot  storage.Snapshot
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, room).Scan(
		&snapshot.Room,
		&snapshot.Data,
		&snapshot.TextLength,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snapshot.UpdatedAt = time.Unix(updatedAt, 0)
	return &snapshot, nil
}

// DeleteSnapshot removes the snapshot of a room
func (s *Storage) DeleteSnapshot(ctx context.Context, room string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM room_snapshots WHERE room = ?`, room)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return storage.ErrSnapshotNotFound
	}

	return nil
}

// ListRooms returns all persisted rooms ordered by name
func (s *Storage) ListRooms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room FROM room_snapshots ORDER BY room`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	rooms := make([]string, 0)
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}
