package storage

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// EntryID computes the content-derived identifier for an entry.
//
// The hash covers the seven identity fields (session, pwd, timestamp,
// elapsed, cmd, hostname, status) in that fixed order, tab-joined,
// integers in decimal. The separator and order are load-bearing: stores
// written by other tools dedup against this one by id, so changing the
// encoding would resurrect every already-synced entry as a duplicate.
//
// Idx is deliberately excluded: it is re-derived on every import and
// would make otherwise-identical executions look distinct. Two
// same-second runs of the same command in the same session therefore
// collapse to one row.
//
// MD5 truncated to 64 bits is plenty for dedup; this is not an
// adversarial setting.
func EntryID(e *Entry) string {
	h := md5.New()
	sep := []byte{'\t'}
	h.Write([]byte(e.Session))
	h.Write(sep)
	h.Write([]byte(e.Pwd))
	h.Write(sep)
	h.Write([]byte(strconv.FormatInt(e.Timestamp, 10)))
	h.Write(sep)
	h.Write([]byte(strconv.FormatInt(e.Elapsed, 10)))
	h.Write(sep)
	h.Write([]byte(e.Cmd))
	h.Write(sep)
	h.Write([]byte(e.Hostname))
	h.Write(sep)
	h.Write([]byte(strconv.FormatInt(e.Status, 10)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Identify fills in e.ID from the identity fields if it is not already set.
func (e *Entry) Identify() {
	if e.ID == "" {
		e.ID = EntryID(e)
	}
}
