// Package transport provides the four wire-level transports the runtime
// can carry JSON-RPC messages over: child-process stdio, SSE+HTTP,
// WebSocket, and an in-memory loopback for tests and single-process
// embeddings.
package transport

import (
	"context"
	"errors"

	"github.com/Bigsy/mcpmu/pkg/mcp"
)

// ErrClosed is returned by PollMessage once a transport has reached a
// clean end-of-stream.
var ErrClosed = errors.New("transport: closed")

// Transport is the full-duplex channel the protocol dispatcher drives.
// Implementations must deliver whole messages (no partial frames), must
// preserve send-order on each direction independently, and must allow
// concurrent Send* calls without interleaving bytes of distinct
// messages.
type Transport interface {
	// Open establishes the underlying channel. Must be called before any
	// other method.
	Open(ctx context.Context) error

	// Close tears the channel down. Idempotent.
	Close() error

	// PollMessage blocks for the next inbound message. It returns
	// ErrClosed on a clean close and any other error on a transport
	// fault.
	PollMessage(ctx context.Context) (*mcp.Message, error)

	// SendRequest writes an outbound request frame.
	SendRequest(ctx context.Context, req *mcp.Request) error

	// SendNotification writes an outbound notification frame.
	SendNotification(ctx context.Context, notif *mcp.Notification) error

	// SendResponse writes an outbound response frame.
	SendResponse(ctx context.Context, resp *mcp.Response) error
}
