package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-tub/dshdb/pkg/storage"
)

const sampleHistory = "99964  1639348558\tcd hist\n" +
	"99965  1639348560\tman bash\n" +
	"99967  1639350393\techo \U0001f638\n" +
	"99968  1639350393\techo \"a\n" +
	"b\"\n" +
	"99969  1639350393\techo 3\n"

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(sampleHistory))
	require.NoError(t, err)

	want := []*RawEntry{
		{Idx: 99964, Timestamp: 1639348558, Cmd: "cd hist"},
		{Idx: 99965, Timestamp: 1639348560, Cmd: "man bash"},
		{Idx: 99967, Timestamp: 1639350393, Cmd: "echo \U0001f638"},
		{Idx: 99968, Timestamp: 1639350393, Cmd: "echo \"a\nb\""},
		{Idx: 99969, Timestamp: 1639350393, Cmd: "echo 3"},
	}
	assert.Equal(t, want, entries)
}

func TestParse_LeadingWhitespace(t *testing.T) {
	entries, err := Parse(strings.NewReader("    7  1639348558\tls\n"))
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].Idx)
	assert.Equal(t, "ls", entries[0].Cmd)
}

func TestParse_BadFirstLine(t *testing.T) {
	_, err := Parse(strings.NewReader("not a history line\n"))
	assert.ErrorContains(t, err, "bad line 1")
}

func TestParse_Empty(t *testing.T) {
	entries, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func newTestStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "hist.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestImport(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	result, err := Import(ctx, db, strings.NewReader(sampleHistory),
		Metadata{Hostname: "example.com"})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Parsed)
	assert.Equal(t, 5, result.Inserted)

	entries, err := db.Query(ctx, storage.QueryFilters{Cmd: "cd hist", Exact: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "example.com", entries[0].Hostname)
	assert.Equal(t, int64(99964), entries[0].Idx)
}

func TestImport_Rerun(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	_, err := Import(ctx, db, strings.NewReader(sampleHistory), Metadata{Hostname: "h1"})
	require.NoError(t, err)

	// Importing the same listing again adds nothing.
	result, err := Import(ctx, db, strings.NewReader(sampleHistory), Metadata{Hostname: "h1"})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Parsed)
	assert.Equal(t, 0, result.Inserted)
}

func TestImport_RenumberedHistoryStillDedups(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	_, err := Import(ctx, db, strings.NewReader("12  1639348558\tcd hist\n"), Metadata{Hostname: "h1"})
	require.NoError(t, err)

	// The shell renumbered its history; the ordinal is not part of
	// identity, so this is the same entry.
	result, err := Import(ctx, db, strings.NewReader("99  1639348558\tcd hist\n"), Metadata{Hostname: "h1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestImport_BadInputLeavesStoreUntouched(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	_, err := Import(ctx, db, strings.NewReader("garbage\n"), Metadata{Hostname: "h1"})
	require.Error(t, err)

	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
