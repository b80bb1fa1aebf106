// Package protocol implements the line-oriented wire encoding used
// between two syncing history stores.
//
// Every message is one JSON value on one newline-terminated line, flushed
// as soon as it is written: the dialog is strictly turn-based and both
// sides block on reads, so a buffered message would deadlock the session.
package protocol

import (
	"errors"
	"fmt"

	"github.com/i-tub/dshdb/pkg/storage"
)

// ErrProtocol reports a message that does not fit the shape the protocol
// state machine expects at this point. It is fatal to the session; no
// recovery is attempted.
var ErrProtocol = errors.New("protocol violation")

func violationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrProtocol}, args...)...)
}

// Command identifies a request from the initiator to the responder.
type Command string

const (
	CmdPull          Command = "PULL"
	CmdGetTimestamps Command = "GET_TIMESTAMPS"
	CmdPush          Command = "PUSH"
	CmdBye           Command = "BYE"
)

// Bare tokens used as handshake and framing sentinels.
const (
	TokenReady   = "READY"
	TokenBegin   = "BEGIN"
	TokenEnd     = "END"
	TokenUnknown = "?"
)

// Request is a [command, payload] message. Only PULL carries a meaningful
// payload (the initiator's watermark map); the rest carry placeholders
// kept for wire compatibility.
//
// Cmd is a plain string rather than a closed enum on the receiving side:
// the responder answers unrecognized commands with the "?" token and
// keeps serving, so decoding must not reject them.
type Request struct {
	Cmd   Command
	Marks storage.Watermarks
}
