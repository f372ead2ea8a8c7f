// Package server implements the Server Session facade: capability
// advertisement, the tool and prompt registries, and the standard
// method handlers wired onto a protocol.Dispatcher.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Bigsy/mcpmu/pkg/mcp"
	"github.com/Bigsy/mcpmu/pkg/mcp/protocol"
	"github.com/Bigsy/mcpmu/pkg/mcp/transport"
)

// ToolHandlerFunc implements one registered tool. It is infallible at
// the protocol level: any failure the tool itself encounters must be
// encoded as a CallToolResponse with IsError true rather than returned
// as a Go error, since tool-execution failures are never wire errors.
type ToolHandlerFunc func(ctx context.Context, req mcp.CallToolRequest) mcp.CallToolResponse

// PromptHandlerFunc implements one registered prompt.
type PromptHandlerFunc func(ctx context.Context, req mcp.GetPromptRequest) (mcp.GetPromptResponse, error)

type toolEntry struct {
	tool    mcp.Tool
	handler ToolHandlerFunc
}

type promptEntry struct {
	prompt  mcp.Prompt
	handler PromptHandlerFunc
}

// ClientConnection is the per-connection state the server tracks about
// the one client on the other end of its transport.
type ClientConnection struct {
	mu                 sync.RWMutex
	clientCapabilities *mcp.ClientCapabilities
	clientInfo         *mcp.Implementation
	initialized        bool
}

func (c *ClientConnection) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

func (c *ClientConnection) ClientInfo() *mcp.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientInfo
}

func (c *ClientConnection) ClientCapabilities() *mcp.ClientCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientCapabilities
}

// Options configures a Server.
type Options struct {
	ServerInfo      mcp.Implementation
	ProtocolVersion string
	Capabilities    mcp.ServerCapabilities
	Instructions    string
}

// Server is the typed facade a concrete transport/dispatcher pair is
// built around. One Server instance serves one connection; a process
// handling many concurrent connections builds one Server per accepted
// transport, sharing tool/prompt registrations via Builder.
type Server struct {
	opts    Options
	tools   map[string]toolEntry
	prompts map[string]promptEntry

	conn *ClientConnection
}

// Builder assembles a Server's tool/prompt registry before binding it to
// a transport.
type Builder struct {
	opts    Options
	tools   map[string]toolEntry
	prompts map[string]promptEntry
}

// NewBuilder starts a builder for a server with the given identity and
// protocol version.
func NewBuilder(name, version, protocolVersion string) *Builder {
	return &Builder{
		opts: Options{
			ServerInfo:      mcp.Implementation{Name: name, Version: version},
			ProtocolVersion: protocolVersion,
		},
		tools:   make(map[string]toolEntry),
		prompts: make(map[string]promptEntry),
	}
}

// WithInstructions sets the free-form instructions advertised in
// InitializeResponse.
func (b *Builder) WithInstructions(instructions string) *Builder {
	b.opts.Instructions = instructions
	return b
}

// WithCapabilities overrides the advertised capability record. At Build
// time, registering at least one tool (or prompt) sets that capability
// block, overwriting whatever is set here for it; with none registered,
// the block set here is kept.
func (b *Builder) WithCapabilities(caps mcp.ServerCapabilities) *Builder {
	b.opts.Capabilities = caps
	return b
}

// RegisterTool adds tool to the registry, paired with handler.
func (b *Builder) RegisterTool(tool mcp.Tool, handler ToolHandlerFunc) *Builder {
	b.tools[tool.Name] = toolEntry{tool: tool, handler: handler}
	return b
}

// RegisterPrompt adds prompt to the registry, paired with handler.
func (b *Builder) RegisterPrompt(prompt mcp.Prompt, handler PromptHandlerFunc) *Builder {
	b.prompts[prompt.Name] = promptEntry{prompt: prompt, handler: handler}
	return b
}

// Build freezes the registry into a Server. The returned Server is bound
// to one connection by calling Serve with a transport.
func (b *Builder) Build() *Server {
	caps := b.opts.Capabilities
	if len(b.tools) > 0 {
		caps.Tools = &mcp.ToolCapabilities{}
	}
	if len(b.prompts) > 0 {
		caps.Prompts = &mcp.PromptCapabilities{}
	}
	opts := b.opts
	opts.Capabilities = caps
	return &Server{
		opts:    opts,
		tools:   b.tools,
		prompts: b.prompts,
		conn:    &ClientConnection{},
	}
}

// Connection returns the per-connection client state. Useful for
// handlers that need to inspect client capabilities.
func (s *Server) Connection() *ClientConnection { return s.conn }

// Serve binds this server's handlers to tr and runs the dispatcher's
// inbound loop until ctx is cancelled or the transport closes.
func (s *Server) Serve(ctx context.Context, tr transport.Transport) error {
	if err := tr.Open(ctx); err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	d := protocol.New(tr)
	s.registerHandlers(d)
	return d.Run(ctx)
}

func (s *Server) registerHandlers(d *protocol.Dispatcher) {
	d.RegisterRequestHandler("initialize", s.handleInitialize)
	d.RegisterNotificationHandler("notifications/initialized", s.handleInitialized)
	d.RegisterRequestHandler("ping", s.handlePing)
	d.RegisterRequestHandler("tools/list", s.handleToolsList)
	d.RegisterRequestHandler("tools/call", s.handleToolsCall)
	d.RegisterRequestHandler("prompts/list", s.handlePromptsList)
	d.RegisterRequestHandler("prompts/get", s.handlePromptsGet)
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	var req mcp.InitializeRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("decode initialize params: %w", err)
		}
	}

	s.conn.mu.Lock()
	s.conn.clientCapabilities = &req.Capabilities
	s.conn.clientInfo = &req.ClientInfo
	s.conn.mu.Unlock()

	return mcp.InitializeResponse{
		ProtocolVersion: s.opts.ProtocolVersion,
		Capabilities:    s.opts.Capabilities,
		ServerInfo:      s.opts.ServerInfo,
		Instructions:    s.opts.Instructions,
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) error {
	s.conn.mu.Lock()
	s.conn.initialized = true
	s.conn.mu.Unlock()
	return nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	return struct{}{}, nil
}

// requireInitialized returns the exact error message a gated method must
// produce when the client has not yet completed the handshake.
func (s *Server) requireInitialized() error {
	if !s.conn.IsInitialized() {
		return mcp.ErrNotInitialized()
	}
	return nil
}

func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (any, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	tools := make([]mcp.Tool, 0, len(s.tools))
	for _, entry := range s.tools {
		tools = append(tools, entry.tool)
	}
	return mcp.ToolsListResponse{Tools: tools}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	var req mcp.CallToolRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("decode tools/call params: %w", err)
	}

	entry, ok := s.tools[req.Name]
	if !ok {
		return nil, fmt.Errorf("Tool not found: %s", req.Name)
	}

	return entry.handler(ctx, req), nil
}

func (s *Server) handlePromptsList(ctx context.Context, params json.RawMessage) (any, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	prompts := make([]mcp.Prompt, 0, len(s.prompts))
	for _, entry := range s.prompts {
		prompts = append(prompts, entry.prompt)
	}
	return mcp.PromptsListResponse{Prompts: prompts}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, params json.RawMessage) (any, error) {
	if err := s.requireInitialized(); err != nil {
		return nil, err
	}
	var req mcp.GetPromptRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("decode prompts/get params: %w", err)
	}

	entry, ok := s.prompts[req.Name]
	if !ok {
		return nil, fmt.Errorf("Prompt not found: %s", req.Name)
	}

	return entry.handler(ctx, req)
}
