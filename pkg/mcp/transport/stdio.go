package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"

	"github.com/Bigsy/mcpmu/pkg/mcp"
)

// DebugLogging enables verbose payload logging of every frame sent or
// received over a stdio transport.
var DebugLogging bool

// Stdio is a newline-delimited JSON (NDJSON) transport over a pair of
// pipes. The same type backs both the client side (pipes to a spawned
// child process) and the server side (the process's own stdin/stdout).
type Stdio struct {
	in  io.WriteCloser
	out io.ReadCloser

	reader *bufio.Reader
	sendMu sync.Mutex

	closeMu sync.Mutex
	closed  bool

	// cmd is set only when this transport owns a spawned child process.
	cmd *exec.Cmd
}

// NewStdio builds a transport directly over the given pipes.
func NewStdio(in io.WriteCloser, out io.ReadCloser) *Stdio {
	return &Stdio{in: in, out: out, reader: bufio.NewReader(out)}
}

// NewStdioChild spawns cmd and wires a Stdio transport to its pipes. The
// child is killed on Close.
func NewStdioChild(cmd *exec.Cmd) (*Stdio, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	return &Stdio{in: stdin, out: stdout, reader: bufio.NewReader(stdout), cmd: cmd}, nil
}

// Open starts the child process, if this transport was built with one.
func (t *Stdio) Open(ctx context.Context) error {
	if t.cmd == nil {
		return nil
	}
	return t.cmd.Start()
}

func (t *Stdio) send(data []byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return fmt.Errorf("stdio transport: closed")
	}

	if DebugLogging {
		log.Printf("mcp stdio send: %s", string(data))
	}
	if _, err := t.in.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if _, err := t.in.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (t *Stdio) SendRequest(ctx context.Context, req *mcp.Request) error {
	if req.JSONRPC == "" {
		req.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return t.send(data)
}

func (t *Stdio) SendNotification(ctx context.Context, notif *mcp.Notification) error {
	if notif.JSONRPC == "" {
		notif.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return t.send(data)
}

func (t *Stdio) SendResponse(ctx context.Context, resp *mcp.Response) error {
	if resp.JSONRPC == "" {
		resp.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return t.send(data)
}

type readResult struct {
	line []byte
	err  error
}

// PollMessage reads one NDJSON line and classifies it. The blocking read
// runs in its own goroutine so that context cancellation can interrupt a
// caller without leaking a goroutine wedged in a syscall: cancellation
// closes the underlying pipe, which unblocks the reader with an error.
func (t *Stdio) PollMessage(ctx context.Context) (*mcp.Message, error) {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	resultCh := make(chan readResult, 1)
	go func() {
		line, err := t.reader.ReadBytes('\n')
		resultCh <- readResult{line: line, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			if result.err == io.EOF && len(result.line) == 0 {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("read line: %w", result.err)
		}
		line := bytes.TrimSpace(result.line)
		if len(line) == 0 {
			return t.PollMessage(ctx)
		}
		if DebugLogging {
			log.Printf("mcp stdio recv: %s", string(line))
		}
		msg, err := mcp.DecodeMessage(line)
		if err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		return msg, nil

	case <-ctx.Done():
		_ = t.out.Close()
		return nil, ctx.Err()
	}
}

// Close tears down the pipes and, if this transport owns a child
// process, kills it. Idempotent.
func (t *Stdio) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if err := t.in.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stdin: %w", err))
	}
	if err := t.out.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stdout: %w", err))
	}
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
