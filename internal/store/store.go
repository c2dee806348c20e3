package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the blob-storage contract the night-data pipeline consumes: save
// a dated snapshot, fetch the most recent one, delete an expired one.
type Store interface {
	// Save persists data under key, overwriting any previous blob with the
	// same key, and returns a locator for it.
	Save(ctx context.Context, key string, data []byte) (string, error)

	// FetchLatest returns the most recently saved blob, or (nil, nil) when
	// no snapshot exists.
	FetchLatest(ctx context.Context) ([]byte, error)

	// Delete removes the blob stored under key. A missing key is a no-op.
	Delete(ctx context.Context, key string) error
}

// NightSnapshot is the single-table persistence model for night data.
type NightSnapshot struct {
	ID        uint   `gorm:"primarykey"`
	Key       string `gorm:"column:snapshot_key;uniqueIndex;size:255"`
	Data      []byte
	CreatedAt time.Time
}

// gormStore implements Store using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	snapshot := NightSnapshot{
		Key:       key,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "created_at"}),
	}).Create(&snapshot).Error
	if err != nil {
		return "", fmt.Errorf("failed to save snapshot %q: %w", key, err)
	}

	return "store://night_snapshots/" + key, nil
}

func (s *gormStore) FetchLatest(ctx context.Context) ([]byte, error) {
	var snapshot NightSnapshot
	err := s.db.WithContext(ctx).Order("created_at DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest snapshot: %w", err)
	}
	return snapshot.Data, nil
}

func (s *gormStore) Delete(ctx context.Context, key string) error {
	// Deleting zero rows is not an error; a snapshot that was never written
	// for that day must not fail the cleanup job.
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&NightSnapshot{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, err)
	}
	return nil
}
