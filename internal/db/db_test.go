package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/buswatch/internal/i2c"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSession(id string) Session {
	return Session{
		ID:        id,
		Source:    "/dev/pigpio0",
		SCLBit:    3,
		SDABit:    2,
		StartedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordAndListSessions(t *testing.T) {
	db := newTestDB(t)

	first := testSession("session-a")
	second := testSession("session-b")
	second.StartedAt = first.StartedAt.Add(time.Hour)
	require.NoError(t, db.RecordSession(first))
	require.NoError(t, db.RecordSession(second))

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// newest first
	assert.Equal(t, "session-b", sessions[0].ID)
	assert.Equal(t, "session-a", sessions[1].ID)
	assert.Equal(t, uint8(3), sessions[1].SCLBit)
	assert.Equal(t, uint8(2), sessions[1].SDABit)
	assert.True(t, sessions[1].StartedAt.Equal(first.StartedAt))
}

func TestRecordSessionDuplicateID(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordSession(testSession("dup")))
	assert.Error(t, db.RecordSession(testSession("dup")))
}

func TestRecordAndListTransactions(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordSession(testSession("s1")))

	tx := &i2c.Transaction{Bytes: []i2c.Byte{
		{Value: 0x01, Status: i2c.Ack},
		{Value: 0x02, Status: i2c.Nak},
		{Value: 0x03, Status: i2c.Ack},
	}}
	require.NoError(t, db.RecordTransaction("s1", 12345, tx))
	require.NoError(t, db.RecordTransaction("s1", 23456, &i2c.Transaction{}))

	records, err := db.Transactions(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// newest first
	assert.Equal(t, uint32(23456), records[0].Tick)
	assert.Equal(t, 0, records[0].ByteCount)
	assert.Equal(t, "[]", records[0].Rendered)

	assert.Equal(t, "s1", records[1].SessionID)
	assert.Equal(t, uint32(12345), records[1].Tick)
	assert.Equal(t, 3, records[1].ByteCount)
	assert.Equal(t, "010203", records[1].Payload)
	assert.Equal(t, "[01+02-03+]", records[1].Rendered)
	assert.False(t, records[1].CapturedAt.IsZero())
}

func TestSessionTransactionsOrderAndScope(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordSession(testSession("s1")))
	require.NoError(t, db.RecordSession(testSession("s2")))

	require.NoError(t, db.RecordTransaction("s1", 10, &i2c.Transaction{Bytes: []i2c.Byte{{Value: 0xA0}}}))
	require.NoError(t, db.RecordTransaction("s2", 20, &i2c.Transaction{Bytes: []i2c.Byte{{Value: 0xB0}}}))
	require.NoError(t, db.RecordTransaction("s1", 30, &i2c.Transaction{Bytes: []i2c.Byte{{Value: 0xC0}}}))

	records, err := db.SessionTransactions("s1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// capture order for a single session
	assert.Equal(t, "a0", records[0].Payload)
	assert.Equal(t, "c0", records[1].Payload)
}

func TestTransactionsLimitClamped(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordSession(testSession("s1")))
	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordTransaction("s1", uint32(i), &i2c.Transaction{}))
	}

	records, err := db.Transactions(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = db.Transactions(-1)
	require.NoError(t, err)
	assert.Len(t, records, 5, "non-positive limit falls back to the default")
}

func TestStats(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, TransactionStats{}, stats, "empty database yields zero stats")

	require.NoError(t, db.RecordSession(testSession("s1")))
	for _, n := range []int{1, 2, 3, 4} {
		tx := &i2c.Transaction{}
		for i := 0; i < n; i++ {
			tx.Bytes = append(tx.Bytes, i2c.Byte{Value: uint8(i)})
		}
		require.NoError(t, db.RecordTransaction("s1", 0, tx))
	}

	stats, err = db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Count)
	assert.Equal(t, int64(10), stats.TotalBytes)
	assert.InDelta(t, 2.5, stats.MeanLength, 1e-9)
	assert.InDelta(t, 2.0, stats.MedianLength, 1e-9)
}

func TestSessionActivities(t *testing.T) {
	db := newTestDB(t)

	early := testSession("early")
	late := testSession("late")
	late.StartedAt = early.StartedAt.Add(time.Hour)
	require.NoError(t, db.RecordSession(early))
	require.NoError(t, db.RecordSession(late))

	require.NoError(t, db.RecordTransaction("late", 0, &i2c.Transaction{}))
	require.NoError(t, db.RecordTransaction("late", 1, &i2c.Transaction{}))

	activities, err := db.SessionActivities()
	require.NoError(t, err)
	require.Len(t, activities, 2)

	// oldest session first, empty sessions still listed
	assert.Equal(t, SessionActivity{SessionID: "early", Count: 0}, activities[0])
	assert.Equal(t, SessionActivity{SessionID: "late", Count: 2}, activities[1])
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := newTestDB(t)

	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	require.NoError(t, db.MigrateUp(migrationsDir))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// migrations are idempotent against the inline base schema
	require.NoError(t, db.RecordSession(testSession("post-migrate")))
}

func TestMigrateToAndDown(t *testing.T) {
	db := newTestDB(t)
	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	require.NoError(t, db.MigrateTo(migrationsDir, 1))
	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateTo(migrationsDir, 2))
	version, _, err = db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	// rolling back one step drops only the session index
	require.NoError(t, db.MigrateDown(migrationsDir))
	version, _, err = db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.RecordSession(testSession("post-rollback")))
}

func TestMigrateForce(t *testing.T) {
	db := newTestDB(t)
	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	require.NoError(t, db.MigrateUp(migrationsDir))
	require.NoError(t, db.MigrateForce(migrationsDir, 1))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}
