// Package importer loads shell history listings into the store.
//
// The expected input is the output of
//
//	HISTTIMEFORMAT='%s%t' history
//
// where each entry starts with a line
//
//	<idx>  <timestamp><tab><command>
//
// and commands containing newlines continue on unprefixed lines.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/i-tub/dshdb/pkg/storage"
)

// RawEntry is one parsed history line before storage metadata is applied.
type RawEntry struct {
	Idx       int64
	Timestamp int64
	Cmd       string
}

// Metadata supplies the fields a raw history listing lacks. The caller
// resolves these explicitly; nothing here reads the environment.
type Metadata struct {
	Hostname string
	Session  string
	Pwd      string
}

// Result contains statistics about an import operation.
type Result struct {
	Parsed   int // entries parsed from the input
	Inserted int // rows actually added (the rest were already present)
}

var entryLine = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\t(.*)$`)

// Parse reads a history listing. Lines that do not start a new entry are
// treated as continuations of the previous command; a malformed first
// line is an error.
func Parse(r io.Reader) ([]*RawEntry, error) {
	var entries []*RawEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		m := entryLine.FindStringSubmatch(line)
		if m == nil {
			if len(entries) == 0 {
				return nil, fmt.Errorf("bad line %d: %q", lineNum, line)
			}
			// Continuation of a multi-line command
			prev := entries[len(entries)-1]
			prev.Cmd += "\n" + line
			continue
		}

		idx, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad index on line %d: %w", lineNum, err)
		}
		ts, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp on line %d: %w", lineNum, err)
		}

		entries = append(entries, &RawEntry{Idx: idx, Timestamp: ts, Cmd: m[3]})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}

	return entries, nil
}

// Import parses a history listing and applies it to the store as one
// transaction. Entries the store already has (same identity hash) are
// skipped silently, so re-importing an overlapping listing is harmless.
func Import(ctx context.Context, store storage.Store, r io.Reader, meta Metadata) (*Result, error) {
	entries, err := Parse(r)
	if err != nil {
		return nil, err
	}

	before, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}

	batch, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = batch.Rollback()
	}()

	for _, raw := range entries {
		entry := &storage.Entry{
			Session:   meta.Session,
			Pwd:       meta.Pwd,
			Timestamp: raw.Timestamp,
			Elapsed:   0,
			Cmd:       raw.Cmd,
			Hostname:  meta.Hostname,
			Status:    0,
			Idx:       raw.Idx,
		}
		if err := batch.InsertIfAbsent(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to import %q: %w", raw.Cmd, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return nil, err
	}

	after, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{Parsed: len(entries), Inserted: int(after - before)}, nil
}
