package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func testEntry(cmd string, timestamp int64) *Entry {
	return &Entry{
		Session:   "session-123",
		Pwd:       "/home/user",
		Timestamp: timestamp,
		Elapsed:   1,
		Cmd:       cmd,
		Hostname:  "h1",
		Status:    0,
		Idx:       1,
	}
}

func mustInsert(t *testing.T, db *DB, entries ...*Entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, db.InsertIfAbsent(context.Background(), e))
	}
}

func TestInsertIfAbsent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := testEntry("ls -la", 1000)
	require.NoError(t, db.InsertIfAbsent(ctx, entry))

	assert.NotEmpty(t, entry.ID)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInsertIfAbsent_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertIfAbsent(ctx, testEntry("ls -la", 1000)))
	require.NoError(t, db.InsertIfAbsent(ctx, testEntry("ls -la", 1000)))

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInsertIfAbsent_DifferentIdxCollapses(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Same identity fields, different source ordinal: one stored row.
	e1 := testEntry("make", 1000)
	e1.Idx = 7
	e2 := testEntry("make", 1000)
	e2.Idx = 8
	mustInsert(t, db, e1, e2)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestQuery_OrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db,
		testEntry("first", 1000),
		testEntry("second", 2000),
		testEntry("third", 3000),
	)

	results, err := db.Query(ctx, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "third", results[0].Cmd)
	assert.Equal(t, "second", results[1].Cmd)
	assert.Equal(t, "first", results[2].Cmd)

	results, err = db.Query(ctx, QueryFilters{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "third", results[0].Cmd)
	assert.Equal(t, "second", results[1].Cmd)
}

func TestQuery_IdxBreaksTimestampTies(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e1 := testEntry("a", 1000)
	e1.Idx = 1
	e2 := testEntry("b", 1000)
	e2.Idx = 2
	mustInsert(t, db, e1, e2)

	results, err := db.Query(ctx, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Cmd)
	assert.Equal(t, "a", results[1].Cmd)
}

func TestQuery_Chronological(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db,
		testEntry("first", 1000),
		testEntry("second", 2000),
		testEntry("third", 3000),
	)

	// Chronological still selects the newest entries, then shows them
	// oldest first.
	results, err := db.Query(ctx, QueryFilters{Chronological: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "second", results[0].Cmd)
	assert.Equal(t, "third", results[1].Cmd)
}

func TestQuery_CmdSubstringAndExact(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db,
		testEntry("git status", 1000),
		testEntry("git commit", 2000),
		testEntry("status", 3000),
	)

	results, err := db.Query(ctx, QueryFilters{Cmd: "status"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = db.Query(ctx, QueryFilters{Cmd: "status", Exact: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "status", results[0].Cmd)
}

func TestQuery_FieldFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e1 := testEntry("ls", 1000)
	e1.Session = "aaa"
	e1.Pwd = "/work/project"
	e1.Hostname = "laptop"
	e2 := testEntry("pwd", 2000)
	e2.Session = "bbb"
	e2.Pwd = "/home/user"
	e2.Hostname = "desktop"
	mustInsert(t, db, e1, e2)

	results, err := db.Query(ctx, QueryFilters{Session: "aaa"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ls", results[0].Cmd)

	results, err = db.Query(ctx, QueryFilters{Pwd: "/work%"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ls", results[0].Cmd)

	results, err = db.Query(ctx, QueryFilters{Hostname: "desktop"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pwd", results[0].Cmd)
}

func TestQuery_Dedup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db,
		testEntry("make", 1000),
		testEntry("make", 2000),
		testEntry("ls", 3000),
	)

	results, err := db.Query(ctx, QueryFilters{Dedup: true})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHostTimestamps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e1 := testEntry("a", 100)
	e2 := testEntry("b", 105)
	e3 := testEntry("c", 50)
	e3.Hostname = "h2"
	mustInsert(t, db, e1, e2, e3)

	marks, err := db.HostTimestamps(ctx)
	require.NoError(t, err)
	assert.Equal(t, Watermarks{"h1": 105, "h2": 50}, marks)
}

func TestHostTimestamps_Empty(t *testing.T) {
	db := setupTestDB(t)

	marks, err := db.HostTimestamps(context.Background())
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestNewerThan(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e1 := testEntry("old", 100)
	e2 := testEntry("new", 200)
	e3 := testEntry("other-host", 10)
	e3.Hostname = "h2"
	mustInsert(t, db, e1, e2, e3)

	// Entries at or below the watermark for their host are excluded;
	// hosts absent from the map are included entirely.
	entries, err := db.NewerThan(ctx, Watermarks{"h1": 100})
	require.NoError(t, err)

	cmds := make([]string, 0, len(entries))
	for _, e := range entries {
		cmds = append(cmds, e.Cmd)
	}
	assert.ElementsMatch(t, []string{"new", "other-host"}, cmds)
}

func TestNewerThan_EmptyWatermarksReturnsEverything(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, testEntry("a", 100), testEntry("b", 200))

	entries, err := db.NewerThan(ctx, Watermarks{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewerThan_ExactWatermarkIsExcluded(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, testEntry("boundary", 100))

	entries, err := db.NewerThan(ctx, Watermarks{"h1": 100})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntry_RoundTripPreservesNewlines(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := testEntry("echo \"a\nb\"", 1000)
	mustInsert(t, db, entry)

	results, err := db.Query(ctx, QueryFilters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "echo \"a\nb\"", results[0].Cmd)
}
