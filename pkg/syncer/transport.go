package syncer

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Transport is a duplex byte stream connected to a peer responder. The
// sync engine neither knows nor cares whether the peer is a local process
// or reached through a remote shell; anything satisfying this interface
// works, including one end of net.Pipe in tests.
//
// Close releases both directions and waits for the peer to let go.
type Transport interface {
	io.Reader
	io.Writer
	Close() error
}

// DialConfig tells Dial how to reach a peer. Values come from explicit
// configuration, never from ambient environment lookups.
type DialConfig struct {
	RemoteShell  string   // command used to reach another host, e.g. "ssh"
	ServeCommand []string // argv that starts a responder, e.g. {"dshdb", "serve"}
	HistfileFlag string   // flag for pointing the responder at a store, e.g. "--histfile"
}

// Dial interprets a sync target and starts a responder process connected
// by its stdio. Targets follow scp conventions:
//
//	host:path  responder on host, explicit history file
//	path       local responder against an existing file (for testing a
//	           second store on the same machine)
//	host       responder on host, default history file
func Dial(target string, cfg DialConfig) (Transport, error) {
	host, histfile := parseTarget(target)
	argv := cfg.argv(host, histfile)
	return StartCommand(argv[0], argv[1:]...)
}

// parseTarget splits a sync target into peer host and history file, either
// of which may be empty. A colon always means host:path; otherwise an
// existing local file is a path and anything else is a host.
func parseTarget(target string) (host, histfile string) {
	if i := strings.IndexByte(target, ':'); i >= 0 {
		return target[:i], target[i+1:]
	}
	if fileExists(target) {
		return "", target
	}
	return target, ""
}

// argv builds the command line that starts the responder.
func (cfg DialConfig) argv(host, histfile string) []string {
	argv := append([]string{}, cfg.ServeCommand...)
	if histfile != "" {
		argv = append(argv, cfg.HistfileFlag, histfile)
	}
	if host != "" {
		argv = append([]string{cfg.RemoteShell, host}, argv...)
	}
	return argv
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// procTransport is a Transport backed by a child process: reads come from
// its stdout, writes go to its stdin.
type procTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

// StartCommand spawns a responder process and returns a transport over
// its stdio. The child's stderr passes through so its diagnostics stay
// visible.
func StartCommand(name string, args ...string) (Transport, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return &procTransport{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (t *procTransport) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

func (t *procTransport) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Close shuts the write side so the peer sees EOF, then waits for it to
// exit.
func (t *procTransport) Close() error {
	if err := t.stdin.Close(); err != nil {
		_ = t.cmd.Wait()
		return fmt.Errorf("failed to close peer stdin: %w", err)
	}
	if err := t.cmd.Wait(); err != nil {
		return fmt.Errorf("peer exited abnormally: %w", err)
	}
	return nil
}
