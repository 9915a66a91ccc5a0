package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/browserwing/locator/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *BoltDB {
	t.Helper()
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "locator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLocateRecord_SaveAndGet(t *testing.T) {
	db := newTestDB(t)

	record := &models.LocateRecord{
		Action:      models.LocateActionClick,
		Target:      "Submit",
		MatchedText: "Submit",
		Strategy:    "exact",
		Score:       1,
		Success:     true,
	}
	require.NoError(t, db.SaveLocateRecord(record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())

	got, err := db.GetLocateRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Target, got.Target)
	assert.Equal(t, record.Action, got.Action)
	assert.Equal(t, record.Score, got.Score)
	assert.True(t, got.Success)

	_, err = db.GetLocateRecord("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocateRecord_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	for i, target := range []string{"first", "second", "third"} {
		require.NoError(t, db.SaveLocateRecord(&models.LocateRecord{
			Action:    models.LocateActionFind,
			Target:    target,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := db.ListLocateRecords(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Target)
	assert.Equal(t, "first", records[2].Target)

	limited, err := db.ListLocateRecords(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "second", limited[1].Target)
}

func TestLocateRecord_DeleteAndClear(t *testing.T) {
	db := newTestDB(t)

	r1 := &models.LocateRecord{Action: models.LocateActionFind, Target: "a"}
	r2 := &models.LocateRecord{Action: models.LocateActionFind, Target: "b"}
	require.NoError(t, db.SaveLocateRecord(r1))
	require.NoError(t, db.SaveLocateRecord(r2))

	require.NoError(t, db.DeleteLocateRecord(r1.ID))
	assert.ErrorIs(t, db.DeleteLocateRecord(r1.ID), ErrNotFound)

	n, err := db.ClearLocateRecords()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := db.ListLocateRecords(0)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, db.SaveLocateRecord(&models.LocateRecord{Action: models.LocateActionFind, Target: "c"}))
}

func TestLocateStats(t *testing.T) {
	db := newTestDB(t)

	for _, r := range []*models.LocateRecord{
		{Action: models.LocateActionClick, Strategy: "exact", Success: true},
		{Action: models.LocateActionClick, Strategy: "fuzzy", Success: true},
		{Action: models.LocateActionInput, Strategy: "exact", Success: true},
		{Action: models.LocateActionFind, Success: false, Error: "no match"},
	} {
		require.NoError(t, db.SaveLocateRecord(r))
	}

	stats, err := db.LocateStats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, map[string]int{"click": 2, "input": 1, "find": 1}, stats.ByAction)
	assert.Equal(t, map[string]int{"exact": 2, "fuzzy": 1}, stats.ByStrategy)
}
