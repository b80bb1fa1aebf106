package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/i-tub/dshdb/pkg/storage"
)

var heading = color.New(color.FgCyan, color.Bold)

// Printer writes formatted entries to a stream, optionally grouped under
// per-date headings with indented time-only rows.
type Printer struct {
	w        io.Writer
	f        *Formatter
	group    bool
	colorize bool
	prevDate string
}

// NewPrinter wraps a formatter for output to w. With group enabled,
// entries are expected in a consistent timestamp order so each date
// heading appears once per run of same-day entries.
func NewPrinter(w io.Writer, f *Formatter, group, colorize bool) *Printer {
	if group {
		f.TimeOnly = true
	}
	return &Printer{w: w, f: f, group: group, colorize: colorize}
}

// Print writes one entry.
func (p *Printer) Print(e *storage.Entry) error {
	if p.group {
		date := p.f.Date(e)
		if date != p.prevDate {
			p.prevDate = date
			line := date + ":"
			if p.colorize {
				line = heading.Sprint(line)
			}
			if _, err := fmt.Fprintln(p.w, line); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(p.w, "\t%s\n", p.f.Format(e))
		return err
	}

	_, err := fmt.Fprintln(p.w, p.f.Format(e))
	return err
}

// PrintAll writes a slice of entries in order.
func (p *Printer) PrintAll(entries []*storage.Entry) error {
	for _, e := range entries {
		if err := p.Print(e); err != nil {
			return err
		}
	}
	return nil
}
