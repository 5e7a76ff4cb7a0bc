package cache

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jstittsworth/league-analytics/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheDocument{}))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestMemoryStoreResetDiscardsUnsavedWork(t *testing.T) {
	store := NewMemory()

	managers, err := Managers(store)
	require.NoError(t, err)
	managers.Manager("user1").DisplayName = "Alice"

	store.Reset()

	managers, err = Managers(store)
	require.NoError(t, err)
	assert.Empty(t, managers.Managers, "unsaved mutation should not survive a reset")
}

func TestMemoryStoreResetRestoresLastSave(t *testing.T) {
	store := NewMemory()

	managers, err := Managers(store)
	require.NoError(t, err)
	managers.Manager("user1").DisplayName = "Alice"
	require.NoError(t, store.SaveAll(context.Background()))

	managers.Manager("user2").DisplayName = "Bob"
	store.Reset()

	managers, err = Managers(store)
	require.NoError(t, err)
	assert.Len(t, managers.Managers, 1)
	assert.Equal(t, "Alice", managers.Manager("user1").DisplayName)
}

func TestDBStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	store := NewDBStore(db, testLogger())

	progress, err := Progress(store)
	require.NoError(t, err)
	progress.Marker.Season = 2024
	progress.Marker.Week = 5

	managers, err := Managers(store)
	require.NoError(t, err)
	rec := managers.Manager("user1")
	rec.DisplayName = "Alice"
	rec.Season(2024).RosterID = 3
	rec.Career.Matchups.Overall.Record("user2", 110.5, 98.2)

	require.NoError(t, store.SaveAll(context.Background()))

	// A fresh store sees only what was saved.
	reloaded := NewDBStore(db, testLogger())
	progress2, err := Progress(reloaded)
	require.NoError(t, err)
	assert.Equal(t, 2024, progress2.Marker.Season)
	assert.Equal(t, 5, progress2.Marker.Week)

	managers2, err := Managers(reloaded)
	require.NoError(t, err)
	rec2 := managers2.Manager("user1")
	assert.Equal(t, "Alice", rec2.DisplayName)
	assert.Equal(t, 3, rec2.Season(2024).RosterID)
	assert.Equal(t, 1, rec2.Career.Matchups.Overall.Wins.Total)
	assert.InDelta(t, 110.5, rec2.Career.Matchups.Overall.PointsFor.ByOpponent["user2"], 0.001)
}

func TestDBStoreSaveAllUpserts(t *testing.T) {
	db := testDB(t)
	store := NewDBStore(db, testLogger())

	progress, err := Progress(store)
	require.NoError(t, err)
	progress.Marker.Season = 2024
	progress.Marker.Week = 1
	require.NoError(t, store.SaveAll(context.Background()))

	progress.Marker.Week = 2
	require.NoError(t, store.SaveAll(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.CacheDocument{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	reloaded := NewDBStore(db, testLogger())
	progress2, err := Progress(reloaded)
	require.NoError(t, err)
	assert.Equal(t, 2, progress2.Marker.Week)
}

func TestStoreRejectsUnknownDocument(t *testing.T) {
	store := NewMemory()
	_, err := store.Get("bogus")
	assert.Error(t, err)
}

func TestMatchupRecordCountsStayConsistent(t *testing.T) {
	rec := &MatchupRecord{}
	rec.Record("opp1", 120.0, 100.0) // win
	rec.Record("opp1", 90.0, 100.0)  // loss
	rec.Record("opp2", 100.0, 100.0) // tie
	rec.Record("opp2", 131.2, 88.8)  // win

	assert.Equal(t, 4, rec.Matchups.Total)
	assert.Equal(t, rec.Matchups.Total, rec.Wins.Total+rec.Losses.Total+rec.Ties.Total)
	assert.Equal(t, 2, rec.Wins.Total)
	assert.Equal(t, 1, rec.Losses.Total)
	assert.Equal(t, 1, rec.Ties.Total)
	assert.Equal(t, 2, rec.Matchups.ByOpponent["opp1"])
	assert.InDelta(t, 210.0, rec.PointsFor.ByOpponent["opp1"], 0.001)
}

func TestCountTallyPrunesZeroOpponents(t *testing.T) {
	var tally CountTally
	tally.Add("opp", 1)
	tally.Add("opp", -1)

	assert.Equal(t, 0, tally.Total)
	assert.NotContains(t, tally.ByOpponent, "opp")
}

func TestAssetFlowPrunesOnReversal(t *testing.T) {
	totals := &TransactionTotals{}
	totals.Acquire("player9", "user2", 1)
	totals.Acquire("player9", "user3", 1)

	totals.Acquire("player9", "user2", -1)
	require.Contains(t, totals.AssetsAcquired, "player9")
	assert.Equal(t, 1, totals.AssetsAcquired["player9"].Count)
	assert.NotContains(t, totals.AssetsAcquired["player9"].Counterparties, "user2")

	totals.Acquire("player9", "user3", -1)
	assert.NotContains(t, totals.AssetsAcquired, "player9")
	assert.True(t, totals.IsZero())
}

func TestPlacementTallyIsIdempotent(t *testing.T) {
	var p PlacementTally
	assert.True(t, p.Add(1, 2023))
	assert.False(t, p.Add(1, 2023))
	assert.True(t, p.Add(3, 2024))

	assert.Equal(t, []int{2023}, p.First)
	assert.Equal(t, []int{2024}, p.Third)
	assert.Empty(t, p.Second)
}

func TestCareerPlayoffAppearanceIsIdempotent(t *testing.T) {
	c := NewCareerRecord()
	assert.True(t, c.AddPlayoffAppearance(2024))
	assert.False(t, c.AddPlayoffAppearance(2024))
	assert.Equal(t, []int{2024}, c.PlayoffAppearances)
}
