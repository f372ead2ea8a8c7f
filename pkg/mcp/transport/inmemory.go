package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Bigsy/mcpmu/pkg/mcp"
)

// InMemory is a loopback transport backed by a pair of buffered
// channels. NewInMemoryPair returns two endpoints already wired
// together; each endpoint's sends arrive on the other's PollMessage in
// order. Used for tests and single-process client/server embeddings.
type InMemory struct {
	out chan []byte
	in  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewInMemoryPair returns two linked endpoints. Each has capacity 64 on
// its outbound queue; a slow reader applies backpressure to the writer
// rather than dropping frames.
func NewInMemoryPair() (a, b *InMemory) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a = &InMemory{out: ab, in: ba, closed: make(chan struct{})}
	b = &InMemory{out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

func (t *InMemory) Open(ctx context.Context) error { return nil }

func (t *InMemory) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *InMemory) send(data []byte) error {
	select {
	case <-t.closed:
		return fmt.Errorf("in-memory transport: closed")
	default:
	}
	select {
	case t.out <- data:
		return nil
	case <-t.closed:
		return fmt.Errorf("in-memory transport: closed")
	}
}

func (t *InMemory) SendRequest(ctx context.Context, req *mcp.Request) error {
	if req.JSONRPC == "" {
		req.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return t.send(data)
}

func (t *InMemory) SendNotification(ctx context.Context, notif *mcp.Notification) error {
	if notif.JSONRPC == "" {
		notif.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	return t.send(data)
}

func (t *InMemory) SendResponse(ctx context.Context, resp *mcp.Response) error {
	if resp.JSONRPC == "" {
		resp.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return t.send(data)
}

func (t *InMemory) PollMessage(ctx context.Context) (*mcp.Message, error) {
	select {
	case data, ok := <-t.in:
		if !ok {
			return nil, ErrClosed
		}
		return mcp.DecodeMessage(data)
	case <-t.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
