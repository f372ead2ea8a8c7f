package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Bigsy/mcpmu/pkg/mcp"
)

// Reconnect backoff bounds for the SSE read loop. The source retries on a
// flat one-second delay forever; an unbounded retry loop against a server
// that is permanently gone is a resource leak, so this port doubles the
// delay on each consecutive failure up to sseMaxBackoff instead of retrying
// at a fixed rate indefinitely.
const (
	sseInitialBackoff = 1 * time.Second
	sseMaxBackoff     = 30 * time.Second
)

// SSEClientConfig configures SSEClient.
type SSEClientConfig struct {
	// BaseURL is the server's origin, e.g. "http://localhost:8080". The
	// SSE stream is fetched from BaseURL+"/sse"; the POST endpoint is
	// whatever path the server advertises in its "endpoint" event,
	// resolved against BaseURL.
	BaseURL string

	// BearerToken, if set, is sent as "Authorization: Bearer <token>" on
	// both the SSE GET and every POST.
	BearerToken string

	// Headers are additional static headers sent on every request.
	Headers map[string]string

	Client *http.Client
}

// SSEClient is the client side of the SSE transport: a long-lived GET
// /sse stream for server→client delivery, and HTTP POST to a
// server-advertised endpoint for client→server delivery.
type SSEClient struct {
	cfg SSEClientConfig

	mu          sync.Mutex
	endpointURL string
	closed      bool

	sseBody io.ReadCloser
	// done is closed exactly once, when the client gives up on the stream
	// for good: either Close was called, or the supervising reconnect loop
	// exhausted its context. A transient read error that triggers a
	// reconnect attempt does not close done.
	done    chan struct{}
	readErr error

	msgQueue chan *mcp.Message

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSSEClient builds a client transport; call Open to establish the
// stream before sending anything.
func NewSSEClient(cfg SSEClientConfig) *SSEClient {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &SSEClient{
		cfg:      cfg,
		msgQueue: make(chan *mcp.Message, 64),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (t *SSEClient) Open(ctx context.Context) error {
	resp, err := t.connect(ctx)
	if err != nil {
		return err
	}

	go t.superviseLoop(ctx, resp)

	select {
	case <-t.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (t *SSEClient) connect(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"/sse", nil)
	if err != nil {
		return nil, fmt.Errorf("build sse request: %w", err)
	}
	t.applyHeaders(req)

	resp, err := t.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open sse stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("open sse stream: status %s", resp.Status)
	}

	t.mu.Lock()
	t.sseBody = resp.Body
	t.mu.Unlock()
	return resp, nil
}

// superviseLoop owns the reconnect policy: it runs readLoop to completion
// against the already-open resp, and on a transient failure reopens the
// stream with exponential backoff capped at sseMaxBackoff. It gives up for
// good (closing t.done) when the client has been explicitly closed or the
// caller's context is cancelled.
func (t *SSEClient) superviseLoop(ctx context.Context, resp *http.Response) {
	defer close(t.done)

	backoff := sseInitialBackoff
	for {
		readErr := t.readLoop(resp.Body)

		t.mu.Lock()
		closed := t.closed
		if closed || readErr == nil {
			t.readErr = readErr
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		// Reconnect with exponential backoff until it succeeds or the
		// client is shut down from under us.
		for {
			select {
			case <-ctx.Done():
				t.mu.Lock()
				t.readErr = ctx.Err()
				t.mu.Unlock()
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > sseMaxBackoff {
				backoff = sseMaxBackoff
			}

			t.mu.Lock()
			closed = t.closed
			if closed {
				t.readErr = readErr
				t.mu.Unlock()
				return
			}
			t.mu.Unlock()

			var connErr error
			resp, connErr = t.connect(ctx)
			if connErr == nil {
				backoff = sseInitialBackoff
				break
			}
			readErr = connErr
		}
	}
}

func (t *SSEClient) applyHeaders(req *http.Request) {
	if t.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
}

// readLoop drains one connection's event stream until it ends, returning
// the error that ended it (io.EOF on a clean server-initiated close).
func (t *SSEClient) readLoop(body io.ReadCloser) error {
	scanner := newSSEScanner(body)
	for {
		event, err := scanner.Next()
		if err != nil {
			return err
		}
		switch event.Event {
		case "endpoint":
			t.mu.Lock()
			t.endpointURL = string(event.Data)
			t.mu.Unlock()
			t.readyOnce.Do(func() { close(t.ready) })
		case "", "message":
			msg, err := mcp.DecodeMessage(event.Data)
			if err != nil {
				continue
			}
			t.msgQueue <- msg
		}
	}
}

func (t *SSEClient) postURL() (string, error) {
	t.mu.Lock()
	endpoint := t.endpointURL
	t.mu.Unlock()
	if endpoint == "" {
		return "", fmt.Errorf("sse client: no endpoint advertised yet")
	}
	base, err := url.Parse(t.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ep, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint url: %w", err)
	}
	return base.ResolveReference(ep).String(), nil
}

func (t *SSEClient) post(data []byte) error {
	target, err := t.postURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	t.applyHeaders(req)

	resp, err := t.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("post message: status %s: %s", resp.Status, string(body))
	}
	return nil
}

func (t *SSEClient) SendRequest(ctx context.Context, req *mcp.Request) error {
	if req.JSONRPC == "" {
		req.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := marshalForSend(req)
	if err != nil {
		return err
	}
	return t.post(data)
}

func (t *SSEClient) SendNotification(ctx context.Context, notif *mcp.Notification) error {
	if notif.JSONRPC == "" {
		notif.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := marshalForSend(notif)
	if err != nil {
		return err
	}
	return t.post(data)
}

func (t *SSEClient) SendResponse(ctx context.Context, resp *mcp.Response) error {
	if resp.JSONRPC == "" {
		resp.JSONRPC = mcp.JSONRPCVersion
	}
	data, err := marshalForSend(resp)
	if err != nil {
		return err
	}
	return t.post(data)
}

func (t *SSEClient) PollMessage(ctx context.Context) (*mcp.Message, error) {
	select {
	case msg := <-t.msgQueue:
		return msg, nil
	case <-t.done:
		t.mu.Lock()
		err := t.readErr
		t.mu.Unlock()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("sse stream: %w", err)
		}
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *SSEClient) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.sseBody != nil {
		return t.sseBody.Close()
	}
	return nil
}
