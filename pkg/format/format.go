// Package format renders history entries for terminal output.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i-tub/dshdb/pkg/storage"
)

// Column specs: each letter selects one tab-separated column.
const (
	// FullSpec is the full row: timestamp, hostname, session, directory,
	// elapsed, command.
	FullSpec = "thsdec"

	// ShortSpec is the default row: timestamp and command.
	ShortSpec = "tc"
)

const (
	timestampLayout = "2006-01-02T15:04:05"
	timeLayout      = "15:04:05"
	dateLayout      = "2006-01-02"
)

// Formatter renders one entry per line according to a column spec:
//
//	t  timestamp (ISO 8601, local to Location)
//	h  hostname
//	s  session ID
//	d  working directory, home abbreviated to ~
//	D  working directory, unabbreviated
//	e  elapsed seconds
//	c  command
//	x  exit status
type Formatter struct {
	spec string
	home string
	loc  *time.Location

	// TimeOnly drops the date from the t column; the grouped printer
	// sets it because the date is already in the heading.
	TimeOnly bool
}

// NewFormatter builds a formatter for the given column spec. An empty
// spec means the full row. Home is used for ~ abbreviation and loc for
// rendering timestamps; both are explicit so output is reproducible.
func NewFormatter(spec, home string, loc *time.Location) (*Formatter, error) {
	if spec == "" {
		spec = FullSpec
	}
	if loc == nil {
		loc = time.Local
	}
	for _, c := range spec {
		if !strings.ContainsRune("thsdDecx", c) {
			return nil, fmt.Errorf("unknown format column %q", string(c))
		}
	}
	return &Formatter{spec: spec, home: home, loc: loc}, nil
}

// Format renders the selected columns of an entry, tab-separated.
func (f *Formatter) Format(e *storage.Entry) string {
	cols := make([]string, 0, len(f.spec))
	for _, c := range f.spec {
		cols = append(cols, f.column(c, e))
	}
	return strings.Join(cols, "\t")
}

func (f *Formatter) column(c rune, e *storage.Entry) string {
	switch c {
	case 't':
		ts := time.Unix(e.Timestamp, 0).In(f.loc)
		if f.TimeOnly {
			return ts.Format(timeLayout)
		}
		return ts.Format(timestampLayout)
	case 'h':
		return e.Hostname
	case 's':
		return e.Session
	case 'd':
		return f.abbrevHome(e.Pwd)
	case 'D':
		return e.Pwd
	case 'e':
		return strconv.FormatInt(e.Elapsed, 10)
	case 'c':
		return e.Cmd
	case 'x':
		return strconv.FormatInt(e.Status, 10)
	}
	return ""
}

// Date renders the entry's calendar date, used for grouped headings.
func (f *Formatter) Date(e *storage.Entry) string {
	return time.Unix(e.Timestamp, 0).In(f.loc).Format(dateLayout)
}

func (f *Formatter) abbrevHome(pwd string) string {
	if f.home == "" {
		return pwd
	}
	if pwd == f.home {
		return "~"
	}
	if strings.HasPrefix(pwd, f.home+"/") {
		return "~" + pwd[len(f.home):]
	}
	return pwd
}
