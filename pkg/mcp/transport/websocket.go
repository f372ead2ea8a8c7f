package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Bigsy/mcpmu/pkg/mcp"
)

// WebSocket is a symmetric transport over a single gorilla/websocket
// connection: each text frame carries exactly one JSON-RPC message.
type WebSocket struct {
	conn   *websocket.Conn
	url    string
	header http.Header

	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
}

var dialer = websocket.Dialer{}

// upgrader is permissive about origin, matching this pack's one
// reference WebSocket server; production deployments should replace
// CheckOrigin with a real allow-list.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewWebSocketClient builds a client-side transport that dials url on
// Open.
func NewWebSocketClient(url string, header http.Header) *WebSocket {
	return &WebSocket{url: url, header: header}
}

// NewWebSocketServerConn wraps an already-upgraded connection (see
// UpgradeHTTP) as a server-side transport.
func NewWebSocketServerConn(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// UpgradeHTTP upgrades an inbound HTTP request to a WebSocket and wraps
// it as a server-side transport.
func UpgradeHTTP(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return NewWebSocketServerConn(conn), nil
}

func (t *WebSocket) Open(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}
	conn, _, err := dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	t.conn = conn
	return nil
}

func (t *WebSocket) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

func (t *WebSocket) writeJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *WebSocket) SendRequest(ctx context.Context, req *mcp.Request) error {
	if req.JSONRPC == "" {
		req.JSONRPC = mcp.JSONRPCVersion
	}
	return t.writeJSON(req)
}

func (t *WebSocket) SendNotification(ctx context.Context, notif *mcp.Notification) error {
	if notif.JSONRPC == "" {
		notif.JSONRPC = mcp.JSONRPCVersion
	}
	return t.writeJSON(notif)
}

func (t *WebSocket) SendResponse(ctx context.Context, resp *mcp.Response) error {
	if resp.JSONRPC == "" {
		resp.JSONRPC = mcp.JSONRPCVersion
	}
	return t.writeJSON(resp)
}

func (t *WebSocket) PollMessage(ctx context.Context) (*mcp.Message, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		_, data, err := t.conn.ReadMessage()
		ch <- result{data: data, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if websocket.IsCloseError(r.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("websocket read: %w", r.err)
		}
		return mcp.DecodeMessage(r.data)
	case <-ctx.Done():
		_ = t.conn.Close()
		return nil, ctx.Err()
	}
}
