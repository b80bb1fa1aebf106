package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/i-tub/dshdb/pkg/storage"
)

// Encoder writes protocol messages to a stream, one JSON line each,
// flushing after every message.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush message: %w", err)
	}
	return nil
}

// WriteToken sends a bare string sentinel such as READY or END.
func (e *Encoder) WriteToken(tok string) error {
	return e.send(tok)
}

// WriteRequest sends a [command, payload] request.
func (e *Encoder) WriteRequest(req Request) error {
	var payload interface{}
	switch req.Cmd {
	case CmdPull:
		marks := req.Marks
		if marks == nil {
			marks = storage.Watermarks{}
		}
		payload = marks
	case CmdPush:
		payload = ""
	case CmdBye:
		payload = map[string]interface{}{}
	default:
		payload = nil
	}
	return e.send([2]interface{}{req.Cmd, payload})
}

// WriteMarks sends a watermark map.
func (e *Encoder) WriteMarks(marks storage.Watermarks) error {
	if marks == nil {
		marks = storage.Watermarks{}
	}
	return e.send(marks)
}

// WriteEntry sends one entry as the fixed nine-field tuple.
func (e *Encoder) WriteEntry(entry *storage.Entry) error {
	return e.send([9]interface{}{
		entry.ID,
		entry.Session,
		entry.Pwd,
		entry.Timestamp,
		entry.Elapsed,
		entry.Cmd,
		entry.Hostname,
		entry.Status,
		entry.Idx,
	})
}

// Decoder reads protocol messages from a stream. Each Read method demands
// the message shape valid at the caller's point in the dialog; anything
// else is a protocol violation and kills the session.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// readLine returns the next newline-terminated JSON document. An io error
// (including EOF from a vanished peer) is returned as-is for the caller
// to classify as a transport failure.
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ReadToken reads a bare string sentinel.
func (d *Decoder) ReadToken() (string, error) {
	line, err := d.readLine()
	if err != nil {
		return "", err
	}
	var tok string
	if err := json.Unmarshal(line, &tok); err != nil {
		return "", violationf("expected token, got %q", trimmed(line))
	}
	return tok, nil
}

// ExpectToken reads a token and fails unless it is the one given.
func (d *Decoder) ExpectToken(want string) error {
	tok, err := d.ReadToken()
	if err != nil {
		return err
	}
	if tok != want {
		return violationf("expected %q, got %q", want, tok)
	}
	return nil
}

// ReadRequest reads a [command, payload] request. The payload is decoded
// only for PULL; other payloads are placeholders and are ignored.
func (d *Decoder) ReadRequest() (Request, error) {
	line, err := d.readLine()
	if err != nil {
		return Request{}, err
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(line, &parts); err != nil {
		return Request{}, violationf("expected request, got %q", trimmed(line))
	}
	if len(parts) != 2 {
		return Request{}, violationf("request must have 2 elements, got %d", len(parts))
	}

	var req Request
	if err := json.Unmarshal(parts[0], &req.Cmd); err != nil {
		return Request{}, violationf("request command must be a string")
	}

	if req.Cmd == CmdPull {
		if err := json.Unmarshal(parts[1], &req.Marks); err != nil {
			return Request{}, violationf("bad PULL payload: %v", err)
		}
		if req.Marks == nil {
			req.Marks = storage.Watermarks{}
		}
	}

	return req, nil
}

// ReadMarks reads a watermark map.
func (d *Decoder) ReadMarks() (storage.Watermarks, error) {
	line, err := d.readLine()
	if err != nil {
		return nil, err
	}
	var marks storage.Watermarks
	if err := json.Unmarshal(line, &marks); err != nil {
		return nil, violationf("expected watermark map, got %q", trimmed(line))
	}
	if marks == nil {
		marks = storage.Watermarks{}
	}
	return marks, nil
}

// ReadBatchItem reads the next message inside a BEGIN...END envelope.
// It returns done=true on the END sentinel, otherwise one entry tuple.
func (d *Decoder) ReadBatchItem() (entry *storage.Entry, done bool, err error) {
	line, err := d.readLine()
	if err != nil {
		return nil, false, err
	}

	var tok string
	if json.Unmarshal(line, &tok) == nil {
		if tok == TokenEnd {
			return nil, true, nil
		}
		return nil, false, violationf("expected entry or END, got %q", tok)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(line, &parts); err != nil {
		return nil, false, violationf("expected entry tuple, got %q", trimmed(line))
	}
	if len(parts) != 9 {
		return nil, false, violationf("entry tuple must have 9 fields, got %d", len(parts))
	}

	e := &storage.Entry{}
	fields := []interface{}{
		&e.ID,
		&e.Session,
		&e.Pwd,
		&e.Timestamp,
		&e.Elapsed,
		&e.Cmd,
		&e.Hostname,
		&e.Status,
		&e.Idx,
	}
	for i, dst := range fields {
		if err := json.Unmarshal(parts[i], dst); err != nil {
			return nil, false, violationf("bad entry field %d: %v", i, err)
		}
	}

	return e, false, nil
}

// trimmed renders a wire line for error messages without its newline and
// without letting a huge line swamp the output.
func trimmed(line []byte) string {
	const max = 80
	s := string(line)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
