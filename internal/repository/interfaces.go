package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vnote-labs/coach/internal/domain"
)

var (
	// ErrNotFound is returned when no snapshot exists for a key.
	ErrNotFound = errors.New("not found")
	// ErrCorruptSnapshot is returned when a stored payload cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// StorageNamespace prefixes every snapshot key.
const StorageNamespace = "vnote.sales.conversation"

// StorageKey returns the snapshot key for a project. An empty project id
// maps to the bare namespace.
func StorageKey(projectID string) string {
	if projectID == "" {
		return StorageNamespace
	}
	return StorageNamespace + "." + projectID
}

// ProjectFromKey reverses StorageKey.
func ProjectFromKey(key string) string {
	if key == StorageNamespace {
		return ""
	}
	if len(key) > len(StorageNamespace)+1 && key[:len(StorageNamespace)+1] == StorageNamespace+"." {
		return key[len(StorageNamespace)+1:]
	}
	return key
}

// SnapshotInfo summarises a stored snapshot without decoding it.
type SnapshotInfo struct {
	Key       string
	TurnCount int
	UpdatedAt time.Time
}

type SnapshotRepo interface {
	Load(ctx context.Context, key string) (*domain.Snapshot, error)
	Save(ctx context.Context, key string, s *domain.Snapshot) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
}
