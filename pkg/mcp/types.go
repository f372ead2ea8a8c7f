// Package mcp defines the wire types shared by every MCP client and server:
// the JSON-RPC envelope, the standard method payloads, and the tool/prompt/
// resource descriptors that flow through them.
package mcp

import "encoding/json"

// Protocol version strings this runtime understands.
const (
	ProtocolVersion20241105 = "2024-11-05"
	ProtocolVersion20250326 = "2025-03-26"

	// LatestProtocolVersion is offered by a client or server that does not
	// need to pin to an older revision.
	LatestProtocolVersion = ProtocolVersion20250326
)

// SupportedProtocolVersions lists every version this module understands,
// most recent first. The client does not negotiate among them: it
// requires the server to answer with the exact version it sent.
var SupportedProtocolVersions = []string{
	ProtocolVersion20250326,
	ProtocolVersion20241105,
}

// Implementation identifies a client or server by name and version.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ListChanged is embedded in capability blocks that support change
// notifications.
type ListChanged struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolCapabilities advertises tool-related support.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptCapabilities advertises prompt-related support.
type PromptCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourceCapabilities advertises resource-related support.
type ResourceCapabilities struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// RootCapabilities advertises filesystem-root related support.
type RootCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ClientCapabilities is sent by the client in InitializeRequest.
type ClientCapabilities struct {
	Roots        *RootCapabilities `json:"roots,omitempty"`
	Sampling     map[string]any    `json:"sampling,omitempty"`
	Experimental map[string]any    `json:"experimental,omitempty"`
}

// ServerCapabilities is returned by the server in InitializeResponse. A
// nil field is omitted entirely rather than serialized as null, so a
// server advertising nothing produces the literal JSON object "{}".
type ServerCapabilities struct {
	Tools        *ToolCapabilities     `json:"tools,omitempty"`
	Prompts      *PromptCapabilities   `json:"prompts,omitempty"`
	Resources    *ResourceCapabilities `json:"resources,omitempty"`
	Logging      map[string]any        `json:"logging,omitempty"`
	Completions  map[string]any        `json:"completions,omitempty"`
	Experimental map[string]any        `json:"experimental,omitempty"`
}

// InitializeRequest is the params of the "initialize" method.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResponse is the result of the "initialize" method.
type InitializeResponse struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Annotations are advisory hints attached to content and resources.
// Consumers must not treat them as authoritative.
type Annotations struct {
	Audience []Role  `json:"audience,omitempty"`
	Priority float64 `json:"priority,omitempty"`
}

// Role tags a participant in a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolAnnotations are advisory hints about a tool's behavior. A server may
// omit any of these; the defaults a client should assume in their absence
// are read-only=false, destructive=true, idempotent=false, open-world=true.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    *bool  `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool  `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
}

// Tool describes one invocable server-side operation.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// ListRequest is the params shared by every paginated "*/list" method.
type ListRequest struct {
	Cursor string `json:"cursor,omitempty"`
}

// ToolsListResponse is the result of "tools/list".
type ToolsListResponse struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolRequest is the params of "tools/call".
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentType discriminates ToolResponseContent and PromptMessageContent
// variants.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeResource ContentType = "resource"
)

// ToolResponseContent is one element of a CallToolResponse's content list.
// Exactly one of Text, (Data+MimeType), or Resource is populated, selected
// by Type.
type ToolResponseContent struct {
	Type        ContentType      `json:"type"`
	Text        string           `json:"text,omitempty"`
	Data        string           `json:"data,omitempty"`
	MimeType    string           `json:"mimeType,omitempty"`
	Resource    *ResourceContent `json:"resource,omitempty"`
	Annotations *Annotations     `json:"annotations,omitempty"`
}

// TextContent builds a text-typed ToolResponseContent.
func TextContent(text string) ToolResponseContent {
	return ToolResponseContent{Type: ContentTypeText, Text: text}
}

// ImageContent builds an image-typed ToolResponseContent. data is base64.
func ImageContent(data, mimeType string) ToolResponseContent {
	return ToolResponseContent{Type: ContentTypeImage, Data: data, MimeType: mimeType}
}

// AudioContent builds an audio-typed ToolResponseContent. data is base64.
func AudioContent(data, mimeType string) ToolResponseContent {
	return ToolResponseContent{Type: ContentTypeAudio, Data: data, MimeType: mimeType}
}

// ResourceContent embeds a ResourceContents value inside tool output.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// CallToolResponse is the result of "tools/call". Execution failures are
// reported here with IsError true, never as a JSON-RPC error — that
// channel is reserved for protocol-level faults such as an unknown tool
// name.
type CallToolResponse struct {
	Content []ToolResponseContent `json:"content"`
	IsError bool                  `json:"isError,omitempty"`
}

// ErrorToolResponse is a convenience constructor for a failed tool
// invocation that still succeeds at the protocol level.
func ErrorToolResponse(message string) CallToolResponse {
	return CallToolResponse{
		Content: []ToolResponseContent{TextContent(message)},
		IsError: true,
	}
}

// PromptArgument describes one named input a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt describes one server-provided prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptsListResponse is the result of "prompts/list".
type PromptsListResponse struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// GetPromptRequest is the params of "prompts/get".
type GetPromptRequest struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessageContent is the content of one PromptMessage. Only text is
// supported by this runtime's prompt registry; the type tag matches
// ToolResponseContent's so the same helper constructors apply.
type PromptMessageContent struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// PromptMessage is one turn returned by "prompts/get".
type PromptMessage struct {
	Role    Role                 `json:"role"`
	Content PromptMessageContent `json:"content"`
}

// GetPromptResponse is the result of "prompts/get".
type GetPromptResponse struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// Resource describes one server-exposed resource.
type Resource struct {
	URI         string       `json:"uri"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Size        int64        `json:"size,omitempty"`
}

// ResourcesListResponse is the result of "resources/list".
type ResourcesListResponse struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ReadResourceRequest is the params of "resources/read".
type ReadResourceRequest struct {
	URI string `json:"uri"`
}

// ResourceContents is one entry of a ReadResourceResponse. Exactly one of
// Text or Blob is populated.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ReadResourceResponse is the result of "resources/read".
type ReadResourceResponse struct {
	Contents []ResourceContents `json:"contents"`
}

// SubscribeResourceRequest is the params of "resources/subscribe" and
// "resources/unsubscribe".
type SubscribeResourceRequest struct {
	URI string `json:"uri"`
}
