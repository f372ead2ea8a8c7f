// Package protocol implements the correlation layer between outbound
// requests and inbound responses, and the routing layer for inbound
// requests and notifications to user-registered handlers. A Dispatcher
// never panics and never returns a raw error to its caller for an
// inbound request: every inbound request yields exactly one outbound
// Response.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bigsy/mcpmu/pkg/mcp"
	"github.com/Bigsy/mcpmu/pkg/mcp/transport"
)

// DefaultRequestTimeout matches the 60 second default the runtime uses
// when a caller doesn't override it.
const DefaultRequestTimeout = 60 * time.Second

// RequestOptions configures one outbound request.
type RequestOptions struct {
	Timeout time.Duration
}

// DefaultRequestOptions returns a fresh options value with the default
// timeout. Each call returns an independent value; this constructor
// never mutates shared state, unlike a fluent builder that might tempt a
// caller into aliasing one.
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{Timeout: DefaultRequestTimeout}
}

// WithTimeout returns a copy of o with Timeout set to d.
func (o RequestOptions) WithTimeout(d time.Duration) RequestOptions {
	o.Timeout = d
	return o
}

// RequestHandler answers one inbound request. It may return an error,
// which the dispatcher wraps as an InternalError response; it must never
// panic.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NotificationHandler handles one inbound notification. Any error it
// returns is logged, never surfaced on the wire (notifications have no
// response).
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// pendingEntry is one in-flight outbound request awaiting its Response.
type pendingEntry struct {
	ch chan *mcp.Response
}

// Dispatcher multiplexes one Transport across concurrent outbound
// requests and inbound request/notification handlers.
type Dispatcher struct {
	tr transport.Transport

	nextID uint64

	pendingMu sync.Mutex
	pending   map[uint64]*pendingEntry

	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler
	syncMethods          map[string]bool

	wg sync.WaitGroup
}

// New builds a Dispatcher over tr. Handlers are registered via
// RegisterRequestHandler/RegisterNotificationHandler before Run starts;
// registering after Run has begun processing inbound messages races the
// read loop and is not supported.
func New(tr transport.Transport) *Dispatcher {
	return &Dispatcher{
		tr:                   tr,
		pending:              make(map[uint64]*pendingEntry),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		syncMethods:          make(map[string]bool),
	}
}

// RegisterRequestHandler installs h for method. Registering the same
// method twice replaces the prior handler. h runs concurrently with any
// other in-flight request or notification handler.
func (d *Dispatcher) RegisterRequestHandler(method string, h RequestHandler) {
	d.requestHandlers[method] = h
}

// RegisterSyncRequestHandler installs h for method and marks method as a
// barrier: Run processes it inline on the read loop instead of spawning
// a goroutine, so it happens-before every request or notification that
// arrives later on the same transport, and no concurrently-arriving
// message can be handled while it runs. Use this for handshake-style
// methods (initialize) whose completion other messages are entitled to
// assume; handlers for ordinary methods should use
// RegisterRequestHandler so a slow call doesn't stall the connection.
func (d *Dispatcher) RegisterSyncRequestHandler(method string, h RequestHandler) {
	d.requestHandlers[method] = h
	d.syncMethods[method] = true
}

// RegisterNotificationHandler installs h for method.
func (d *Dispatcher) RegisterNotificationHandler(method string, h NotificationHandler) {
	d.notificationHandlers[method] = h
}

// newMessageID allocates the next monotonic outbound request ID.
func (d *Dispatcher) newMessageID() uint64 {
	return atomic.AddUint64(&d.nextID, 1)
}

// Request sends method/params as a Request and blocks until the
// matching Response arrives, the context is cancelled, or opts.Timeout
// elapses — whichever comes first. A timeout or cancellation resolves
// with a synthetic RequestTimeout error response; a genuine late
// response that arrives afterward is silently dropped.
func (d *Dispatcher) Request(ctx context.Context, method string, params any, opts RequestOptions) (json.RawMessage, error) {
	if opts.Timeout <= 0 {
		opts = DefaultRequestOptions()
	}

	id := d.newMessageID()
	entry := &pendingEntry{ch: make(chan *mcp.Response, 1)}

	d.pendingMu.Lock()
	d.pending[id] = entry
	d.pendingMu.Unlock()

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			d.removePending(id)
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		raw = data
	}

	req := &mcp.Request{JSONRPC: mcp.JSONRPCVersion, ID: id, Method: method, Params: raw}
	if err := d.tr.SendRequest(ctx, req); err != nil {
		d.removePending(id)
		return nil, fmt.Errorf("send request: %w", err)
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	resolve := func(resp *mcp.Response) (json.RawMessage, error) {
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}

	select {
	case resp := <-entry.ch:
		return resolve(resp)

	case <-timer.C:
		d.cancel(id, "Request timed out")
		return resolve(<-entry.ch)

	case <-ctx.Done():
		d.cancel(id, "Request cancelled")
		return resolve(<-entry.ch)
	}
}

func (d *Dispatcher) removePending(id uint64) {
	d.pendingMu.Lock()
	delete(d.pending, id)
	d.pendingMu.Unlock()
}

// cancel removes id's pending entry and resolves its waiter with a
// synthetic RequestTimeout response carrying message. A no-op if the
// entry has already been resolved by a real response.
func (d *Dispatcher) cancel(id uint64, message string) {
	d.pendingMu.Lock()
	entry, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.pendingMu.Unlock()
	if !ok {
		return
	}
	entry.ch <- &mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Error:   mcp.ErrRequestTimeout(message),
	}
}

// Notify sends a one-way notification.
func (d *Dispatcher) Notify(ctx context.Context, method string, params any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		raw = data
	}
	return d.tr.SendNotification(ctx, &mcp.Notification{JSONRPC: mcp.JSONRPCVersion, Method: method, Params: raw})
}

// Run drives the transport's inbound loop until ctx is cancelled or the
// transport closes. Each inbound request/notification handler runs in
// its own goroutine (except methods registered with
// RegisterSyncRequestHandler, which run inline), so a slow handler never blocks delivery of
// concurrent inbound messages or outbound responses. Run does not
// return until every handler it started has finished, so a caller that
// waits on Run is guaranteed every response reaching it by that point
// has already been written to the transport.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.wg.Wait()

	for {
		msg, err := d.tr.PollMessage(ctx)
		if err != nil {
			if err == transport.ErrClosed {
				return nil
			}
			return err
		}

		switch msg.Kind {
		case mcp.KindResponse:
			d.handleResponse(msg.Response)
		case mcp.KindRequest:
			if d.syncMethods[msg.Request.Method] {
				d.handleRequest(ctx, msg.Request)
				continue
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.handleRequest(ctx, msg.Request)
			}()
		case mcp.KindNotification:
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.handleNotification(ctx, msg.Notification)
			}()
		}
	}
}

func (d *Dispatcher) handleResponse(resp *mcp.Response) {
	d.pendingMu.Lock()
	entry, ok := d.pending[resp.ID]
	if ok {
		delete(d.pending, resp.ID)
	}
	d.pendingMu.Unlock()
	if !ok {
		return
	}
	entry.ch <- resp
}

// handleRequest never lets a handler failure escape as anything but a
// wire-level Response: a missing handler yields MethodNotFound, a
// handler success is marshaled into Result. A handler error is sent
// verbatim if it is already an *mcp.RPCError (so a handler can signal a
// precise domain error code), otherwise it is wrapped as InternalError.
func (d *Dispatcher) handleRequest(ctx context.Context, req *mcp.Request) {
	handler, ok := d.requestHandlers[req.Method]
	if !ok {
		d.sendError(ctx, req.ID, mcp.ErrMethodNotFound(req.Method))
		return
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		if rpcErr, ok := err.(*mcp.RPCError); ok {
			d.sendError(ctx, req.ID, rpcErr)
			return
		}
		d.sendError(ctx, req.ID, mcp.ErrInternalError(err.Error()))
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		d.sendError(ctx, req.ID, mcp.ErrInternalError(fmt.Sprintf("marshal result: %v", err)))
		return
	}
	resp := &mcp.Response{JSONRPC: mcp.JSONRPCVersion, ID: req.ID, Result: raw}
	if err := d.tr.SendResponse(ctx, resp); err != nil {
		log.Printf("mcp dispatcher: send response for %s: %v", req.Method, err)
	}
}

func (d *Dispatcher) sendError(ctx context.Context, id uint64, rpcErr *mcp.RPCError) {
	resp := &mcp.Response{JSONRPC: mcp.JSONRPCVersion, ID: id, Error: rpcErr}
	if err := d.tr.SendResponse(ctx, resp); err != nil {
		log.Printf("mcp dispatcher: send error response: %v", err)
	}
}

func (d *Dispatcher) handleNotification(ctx context.Context, notif *mcp.Notification) {
	handler, ok := d.notificationHandlers[notif.Method]
	if !ok {
		log.Printf("mcp dispatcher: no handler for notification %s", notif.Method)
		return
	}
	if err := handler(ctx, notif.Params); err != nil {
		log.Printf("mcp dispatcher: notification handler for %s failed: %v", notif.Method, err)
	}
}
