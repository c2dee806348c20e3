package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens an in-memory SQLite database with the snapshot schema.
func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&NightSnapshot{}))
	return NewGormStore(db)
}

func TestGormStore_SaveAndFetchLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	locator, err := s.Save(ctx, "blablabus_night_2025-04-11.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "store://night_snapshots/blablabus_night_2025-04-11.json", locator)

	data, err := s.FetchLatest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestGormStore_SaveOverwritesSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "blablabus_night_2025-04-11.json", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = s.Save(ctx, "blablabus_night_2025-04-11.json", []byte(`{"v":2}`))
	require.NoError(t, err)

	data, err := s.FetchLatest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))
}

func TestGormStore_FetchLatestReturnsNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "blablabus_night_2025-04-10.json", []byte(`{"day":10}`))
	require.NoError(t, err)
	_, err = s.Save(ctx, "blablabus_night_2025-04-11.json", []byte(`{"day":11}`))
	require.NoError(t, err)

	data, err := s.FetchLatest(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":11}`, string(data))
}

func TestGormStore_FetchLatestEmpty(t *testing.T) {
	s := newTestStore(t)

	data, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestGormStore_DeleteMissingKeyIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Delete(ctx, "blablabus_night_2025-04-01.json"))

	// Delete removes saved snapshots as well.
	_, err := s.Save(ctx, "blablabus_night_2025-04-11.json", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "blablabus_night_2025-04-11.json"))

	data, err := s.FetchLatest(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}
