package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vnote-labs/coach/internal/db"
	"github.com/vnote-labs/coach/internal/domain"
)

// SQLiteSnapshotRepo implements SnapshotRepo using a SQLite database. The
// snapshot is stored as one JSON document per key.
type SQLiteSnapshotRepo struct {
	db  db.DBTX
	now func() time.Time
}

// NewSQLiteSnapshotRepo creates a new SQLiteSnapshotRepo.
func NewSQLiteSnapshotRepo(conn db.DBTX) *SQLiteSnapshotRepo {
	return &SQLiteSnapshotRepo{db: conn, now: time.Now}
}

func (r *SQLiteSnapshotRepo) Load(ctx context.Context, key string) (*domain.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM conversation_snapshots WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}

	var s domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w: %v", key, ErrCorruptSnapshot, err)
	}
	if s.History == nil {
		s.History = []domain.ConversationTurn{}
	}
	return &s, nil
}

func (r *SQLiteSnapshotRepo) Save(ctx context.Context, key string, s *domain.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", key, err)
	}
	query := `INSERT INTO conversation_snapshots (key, payload, turn_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			turn_count = excluded.turn_count,
			updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query,
		key,
		string(payload),
		len(s.History),
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot for key. Deleting a missing key is not an error.
func (r *SQLiteSnapshotRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversation_snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteSnapshotRepo) ListKeys(ctx context.Context) ([]string, error) {
	infos, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	return keys, nil
}

// List returns stored snapshots, most recently updated first.
func (r *SQLiteSnapshotRepo) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, turn_count, updated_at FROM conversation_snapshots ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var updated string
		if err := rows.Scan(&info.Key, &info.TurnCount, &updated); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			info.UpdatedAt = t
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
