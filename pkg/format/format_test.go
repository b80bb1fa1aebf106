package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-tub/dshdb/pkg/storage"
)

func sampleEntry() *storage.Entry {
	return &storage.Entry{
		ID:        "0123456789abcdef",
		Session:   "sess-1",
		Pwd:       "/home/alice/src",
		Timestamp: time.Date(2021, 12, 12, 9, 5, 42, 0, time.UTC).Unix(),
		Elapsed:   3,
		Cmd:       "git status",
		Hostname:  "example.com",
		Status:    0,
		Idx:       17,
	}
}

func newTestFormatter(t *testing.T, spec string) *Formatter {
	t.Helper()
	f, err := NewFormatter(spec, "/home/alice", time.UTC)
	require.NoError(t, err)
	return f
}

func TestFormat_Columns(t *testing.T) {
	e := sampleEntry()
	e.Status = 1

	tests := []struct {
		spec string
		want string
	}{
		{"t", "2021-12-12T09:05:42"},
		{"h", "example.com"},
		{"s", "sess-1"},
		{"d", "~/src"},
		{"D", "/home/alice/src"},
		{"e", "3"},
		{"c", "git status"},
		{"x", "1"},
		{ShortSpec, "2021-12-12T09:05:42\tgit status"},
		{FullSpec, "2021-12-12T09:05:42\texample.com\tsess-1\t~/src\t3\tgit status"},
	}
	for _, tt := range tests {
		f := newTestFormatter(t, tt.spec)
		assert.Equal(t, tt.want, f.Format(e), "spec %q", tt.spec)
	}
}

func TestFormat_EmptySpecIsFullRow(t *testing.T) {
	f := newTestFormatter(t, "")
	full := newTestFormatter(t, FullSpec)

	e := sampleEntry()
	assert.Equal(t, full.Format(e), f.Format(e))
}

func TestNewFormatter_UnknownColumn(t *testing.T) {
	_, err := NewFormatter("tz", "/home/alice", time.UTC)
	assert.ErrorContains(t, err, `unknown format column "z"`)
}

func TestFormat_TimeOnly(t *testing.T) {
	f := newTestFormatter(t, "t")
	f.TimeOnly = true

	assert.Equal(t, "09:05:42", f.Format(sampleEntry()))
}

func TestDate(t *testing.T) {
	f := newTestFormatter(t, ShortSpec)
	assert.Equal(t, "2021-12-12", f.Date(sampleEntry()))
}

func TestAbbrevHome(t *testing.T) {
	f := newTestFormatter(t, "d")

	tests := []struct {
		pwd  string
		want string
	}{
		{"/home/alice", "~"},
		{"/home/alice/src/dshdb", "~/src/dshdb"},
		{"/home/alicesmith", "/home/alicesmith"},
		{"/tmp", "/tmp"},
	}
	for _, tt := range tests {
		e := sampleEntry()
		e.Pwd = tt.pwd
		assert.Equal(t, tt.want, f.Format(e), "pwd %q", tt.pwd)
	}
}

func TestAbbrevHome_NoHome(t *testing.T) {
	f, err := NewFormatter("d", "", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "/home/alice/src", f.Format(sampleEntry()))
}
