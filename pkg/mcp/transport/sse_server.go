package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Bigsy/mcpmu/pkg/mcp"
)

// pingInterval is the cadence of keep-alive "ping" notifications pushed
// down an idle SSE stream.
const pingInterval = 15 * time.Second

// sseOutboundCapacity bounds each session's outbound queue. A session
// whose consumer cannot keep up is terminated rather than allowed to
// grow its queue without bound.
const sseOutboundCapacity = 100

// SSEServer multiplexes many per-client sessions over Server-Sent Events
// (server→client) paired with HTTP POST (client→server). Each session is
// itself a Transport, handed to a dispatcher/server-session pair by
// Accept.
type SSEServer struct {
	mu       sync.Mutex
	sessions map[string]*sseServerSession
	accepted chan *sseServerSession
}

// NewSSEServer builds an empty server transport; register its routes
// with Router.
func NewSSEServer() *SSEServer {
	return &SSEServer{
		sessions: make(map[string]*sseServerSession),
		accepted: make(chan *sseServerSession, 16),
	}
}

// Router returns a chi.Router exposing GET /sse and POST /message.
func (s *SSEServer) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/sse", s.handleSSE)
	r.Post("/message", s.handleMessage)
	return r
}

// Accept blocks until a new SSE session connects, returning a Transport
// scoped to that one session. Call this in a loop from the code that
// also owns a Server Session, one goroutine per accepted session.
func (s *SSEServer) Accept(ctx context.Context) (Transport, error) {
	select {
	case sess := <-s.accepted:
		return sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := uuid.New().String()
	sess := &sseServerSession{
		id:       id,
		inbound:  make(chan *mcp.Message, sseOutboundCapacity),
		outbound: make(chan []byte, sseOutboundCapacity),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		sess.Close()
	}()

	select {
	case s.accepted <- sess:
	default:
		// Accept isn't being drained; the session is still usable, it
		// just won't surface through Accept. This keeps handleSSE
		// non-blocking when no one is calling Accept (e.g. the caller
		// drives sessions some other way).
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%s\n\n", id)
	flusher.Flush()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-sess.outbound:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()

		case <-ping.C:
			notif := mcp.Notification{JSONRPC: mcp.JSONRPCVersion, Method: "ping"}
			data, _ := json.Marshal(notif)
			select {
			case sess.outbound <- data:
				fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
				flusher.Flush()
			default:
				return
			}

		case <-sess.done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

func (s *SSEServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	if id == "" {
		http.Error(w, "Session ID not specified", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, fmt.Sprintf("Session %s not found", id), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	msg, err := mcp.DecodeMessage(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	select {
	case sess.inbound <- msg:
		w.WriteHeader(http.StatusAccepted)
	default:
		log.Printf("mcp sse: session %s inbound queue full, dropping message", id)
		http.Error(w, "session busy", http.StatusInternalServerError)
	}
}

// sseServerSession is the Transport view of one connected SSE client.
type sseServerSession struct {
	id       string
	inbound  chan *mcp.Message
	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (s *sseServerSession) Open(ctx context.Context) error { return nil }

func (s *sseServerSession) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *sseServerSession) enqueue(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case s.outbound <- data:
		return nil
	case <-s.done:
		return fmt.Errorf("sse session %s: closed", s.id)
	default:
		return fmt.Errorf("sse session %s: outbound queue full", s.id)
	}
}

func (s *sseServerSession) SendRequest(ctx context.Context, req *mcp.Request) error {
	if req.JSONRPC == "" {
		req.JSONRPC = mcp.JSONRPCVersion
	}
	return s.enqueue(req)
}

func (s *sseServerSession) SendNotification(ctx context.Context, notif *mcp.Notification) error {
	if notif.JSONRPC == "" {
		notif.JSONRPC = mcp.JSONRPCVersion
	}
	return s.enqueue(notif)
}

func (s *sseServerSession) SendResponse(ctx context.Context, resp *mcp.Response) error {
	if resp.JSONRPC == "" {
		resp.JSONRPC = mcp.JSONRPCVersion
	}
	return s.enqueue(resp)
}

func (s *sseServerSession) PollMessage(ctx context.Context) (*mcp.Message, error) {
	select {
	case msg, ok := <-s.inbound:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
