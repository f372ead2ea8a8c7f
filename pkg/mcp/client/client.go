// Package client implements the Client Session facade: handshake, tool
// discovery/invocation, resource and prompt access, layered over a
// protocol.Dispatcher.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Bigsy/mcpmu/pkg/mcp"
	"github.com/Bigsy/mcpmu/pkg/mcp/protocol"
	"github.com/Bigsy/mcpmu/pkg/mcp/transport"
)

// SecureValue is one configured argument substitution rule: either a
// literal static replacement, or a reference to an environment variable
// read at call time.
type SecureValue struct {
	Static string
	EnvVar string
}

// StaticSecureValue builds a secure value that always substitutes value.
func StaticSecureValue(value string) SecureValue { return SecureValue{Static: value} }

// EnvSecureValue builds a secure value that substitutes the current
// value of the named environment variable, falling back to the
// original argument string if the variable is unset.
func EnvSecureValue(name string) SecureValue { return SecureValue{EnvVar: name} }

func (v SecureValue) resolve(original string) string {
	if v.EnvVar != "" {
		if resolved, ok := os.LookupEnv(v.EnvVar); ok {
			return resolved
		}
		return original
	}
	return v.Static
}

// Options configures a Client.
type Options struct {
	// ClientInfo identifies this client in the handshake. Defaults to
	// {"mcpmu-go", "0.1.0"} if zero.
	ClientInfo mcp.Implementation

	// Capabilities advertised during initialize. Zero value advertises
	// nothing.
	Capabilities mcp.ClientCapabilities

	// ProtocolVersion pinned for this session. Defaults to
	// mcp.LatestProtocolVersion.
	ProtocolVersion string

	// Strict, when true, makes every operation other than Open and
	// Initialize fail fast with an error if Initialize has not yet
	// completed, rather than sending a request the server would reject.
	Strict bool

	// SecureValues maps a tools/call argument key to a substitution
	// rule applied just before the call is sent.
	SecureValues map[string]SecureValue
}

// Client is the typed facade over a Transport + Dispatcher pair.
type Client struct {
	opts Options
	tr   transport.Transport
	d    *protocol.Dispatcher

	runCtx    context.Context
	runCancel context.CancelFunc
	runDone   chan struct{}

	mu       sync.RWMutex
	initRes  *mcp.InitializeResponse
	initDone bool
}

// New builds a Client over tr. Call Open before any RPC.
func New(tr transport.Transport, opts Options) *Client {
	if opts.ClientInfo.Name == "" {
		opts.ClientInfo = mcp.Implementation{Name: "mcpmu-go", Version: "0.1.0"}
	}
	if opts.ProtocolVersion == "" {
		opts.ProtocolVersion = mcp.LatestProtocolVersion
	}
	return &Client{
		opts: opts,
		tr:   tr,
		d:    protocol.New(tr),
	}
}

// Open establishes the transport and starts the dispatcher's inbound
// loop in the background.
func (c *Client) Open(ctx context.Context) error {
	if err := c.tr.Open(ctx); err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	c.runCtx, c.runCancel = context.WithCancel(context.Background())
	c.runDone = make(chan struct{})
	go func() {
		defer close(c.runDone)
		_ = c.d.Run(c.runCtx)
	}()
	return nil
}

// Close stops the dispatcher loop and closes the transport.
func (c *Client) Close() error {
	if c.runCancel != nil {
		c.runCancel()
		<-c.runDone
	}
	return c.tr.Close()
}

// assertInitialized returns an error if Strict is set and Initialize has
// not completed.
func (c *Client) assertInitialized() error {
	if !c.opts.Strict {
		return nil
	}
	c.mu.RLock()
	ok := c.initDone
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("client not initialized")
	}
	return nil
}

// Initialize performs the handshake: sends "initialize", verifies the
// server accepted the configured protocol version exactly, caches the
// response, then sends "notifications/initialized".
func (c *Client) Initialize(ctx context.Context) (*mcp.InitializeResponse, error) {
	req := mcp.InitializeRequest{
		ProtocolVersion: c.opts.ProtocolVersion,
		Capabilities:    c.opts.Capabilities,
		ClientInfo:      c.opts.ClientInfo,
	}

	raw, err := c.d.Request(ctx, "initialize", req, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	var result mcp.InitializeResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("initialize: decode response: %w", err)
	}

	if result.ProtocolVersion != c.opts.ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %s", result.ProtocolVersion)
	}

	c.mu.Lock()
	c.initRes = &result
	c.initDone = true
	c.mu.Unlock()

	if err := c.d.Notify(ctx, "notifications/initialized", nil); err != nil {
		return nil, fmt.Errorf("notifications/initialized: %w", err)
	}

	return &result, nil
}

// InitializeResponse returns the cached handshake result, if any.
func (c *Client) InitializeResponse() *mcp.InitializeResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initRes
}

// ListTools retrieves one page of tools.
func (c *Client) ListTools(ctx context.Context, cursor string) (*mcp.ToolsListResponse, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.d.Request(ctx, "tools/list", mcp.ListRequest{Cursor: cursor}, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	var result mcp.ToolsListResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("tools/list: decode response: %w", err)
	}
	return &result, nil
}

// CallTool invokes a tool, applying configured secure-value
// substitution to arguments before the request is sent.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResponse, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}

	var argsValue any = arguments
	if len(c.opts.SecureValues) > 0 && arguments != nil {
		argsValue = applySecureReplacements(arguments, c.opts.SecureValues)
	}

	argsRaw, err := json.Marshal(argsValue)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}

	req := mcp.CallToolRequest{Name: name, Arguments: argsRaw}
	raw, err := c.d.Request(ctx, "tools/call", req, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("tools/call: %w", err)
	}
	var result mcp.CallToolResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("tools/call: decode response: %w", err)
	}
	return &result, nil
}

// ListPrompts retrieves one page of prompts.
func (c *Client) ListPrompts(ctx context.Context, cursor string) (*mcp.PromptsListResponse, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.d.Request(ctx, "prompts/list", mcp.ListRequest{Cursor: cursor}, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("prompts/list: %w", err)
	}
	var result mcp.PromptsListResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("prompts/list: decode response: %w", err)
	}
	return &result, nil
}

// GetPrompt resolves one prompt template with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*mcp.GetPromptResponse, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}
	req := mcp.GetPromptRequest{Name: name, Arguments: arguments}
	raw, err := c.d.Request(ctx, "prompts/get", req, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("prompts/get: %w", err)
	}
	var result mcp.GetPromptResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("prompts/get: decode response: %w", err)
	}
	return &result, nil
}

// ListResources retrieves one page of resources.
func (c *Client) ListResources(ctx context.Context, cursor string) (*mcp.ResourcesListResponse, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.d.Request(ctx, "resources/list", mcp.ListRequest{Cursor: cursor}, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("resources/list: %w", err)
	}
	var result mcp.ResourcesListResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("resources/list: decode response: %w", err)
	}
	return &result, nil
}

// ReadResource reads one resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResponse, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.d.Request(ctx, "resources/read", mcp.ReadResourceRequest{URI: uri}, protocol.DefaultRequestOptions())
	if err != nil {
		return nil, fmt.Errorf("resources/read: %w", err)
	}
	var result mcp.ReadResourceResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("resources/read: decode response: %w", err)
	}
	return &result, nil
}

// SubscribeToResource asks the server to notify this client of changes
// to uri.
func (c *Client) SubscribeToResource(ctx context.Context, uri string) error {
	if err := c.assertInitialized(); err != nil {
		return err
	}
	_, err := c.d.Request(ctx, "resources/subscribe", mcp.SubscribeResourceRequest{URI: uri}, protocol.DefaultRequestOptions())
	if err != nil {
		return fmt.Errorf("resources/subscribe: %w", err)
	}
	return nil
}

// UnsubscribeFromResource cancels a prior subscription.
func (c *Client) UnsubscribeFromResource(ctx context.Context, uri string) error {
	if err := c.assertInitialized(); err != nil {
		return err
	}
	_, err := c.d.Request(ctx, "resources/unsubscribe", mcp.SubscribeResourceRequest{URI: uri}, protocol.DefaultRequestOptions())
	if err != nil {
		return fmt.Errorf("resources/unsubscribe: %w", err)
	}
	return nil
}

// Ping performs a liveness round-trip.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.assertInitialized(); err != nil {
		return err
	}
	_, err := c.d.Request(ctx, "ping", nil, protocol.DefaultRequestOptions())
	return err
}

// Request is the generic escape hatch for methods this facade does not
// wrap directly.
func (c *Client) Request(ctx context.Context, method string, params any, opts protocol.RequestOptions) (json.RawMessage, error) {
	if err := c.assertInitialized(); err != nil {
		return nil, err
	}
	return c.d.Request(ctx, method, params, opts)
}

// Notify is the generic escape hatch for fire-and-forget notifications
// this facade does not wrap directly.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	if err := c.assertInitialized(); err != nil {
		return err
	}
	return c.d.Notify(ctx, method, params)
}

// applySecureReplacements recursively walks value, replacing any string
// found at a key present in secureValues with that rule's resolved
// replacement. Arrays and nested objects are recursed into, including
// non-string values found at a matching key. Applying this twice with
// the same configuration is idempotent only if resolve() is itself
// idempotent (true for both Static and the common case of an Env lookup
// whose variable doesn't itself hold a matching key name).
func applySecureReplacements(value any, secureValues map[string]SecureValue) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if rule, ok := secureValues[key]; ok {
				if s, isString := val.(string); isString {
					out[key] = rule.resolve(s)
					continue
				}
			}
			out[key] = applySecureReplacements(val, secureValues)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = applySecureReplacements(item, secureValues)
		}
		return out
	default:
		return v
	}
}
