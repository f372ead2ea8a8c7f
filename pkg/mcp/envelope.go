package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only accepted value of the "jsonrpc" envelope
// field; it is assumed when the field is absent on an inbound message.
const JSONRPCVersion = "2.0"

// Request is an outbound or inbound JSON-RPC request: it expects exactly
// one matching Response carrying the same ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is a one-way JSON-RPC message: no response is expected or
// permitted.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers a prior Request by ID. Exactly one of Result or Error
// is populated.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// MessageKind identifies which envelope variant a decoded Message holds.
type MessageKind int

const (
	KindResponse MessageKind = iota
	KindRequest
	KindNotification
)

// Message is a classified JSON-RPC envelope. Exactly one of the typed
// fields is populated, selected by Kind.
type Message struct {
	Kind         MessageKind
	Request      *Request
	Response     *Response
	Notification *Notification
}

// probe records which top-level fields are present on an inbound
// message, without committing to a concrete variant. The wire format has
// no discriminator tag, so classification is purely structural.
type probe struct {
	JSONRPC *string          `json:"jsonrpc"`
	ID      *uint64          `json:"id"`
	Method  *string          `json:"method"`
	Params  *json.RawMessage `json:"params"`
	Result  *json.RawMessage `json:"result"`
	Error   *RPCError        `json:"error"`
}

// DecodeMessage classifies and parses one inbound JSON-RPC envelope.
// Classification order is Response, then Request, then Notification: a
// message carrying both "id" and "method" is a Request (Requests are
// checked before Notifications specifically because both may lack
// "result"/"error", and "id" presence is what disambiguates them; a
// message is a Response only when "method" is absent). Unknown top-level
// fields are rejected, matching the strict envelope each variant
// requires.
func DecodeMessage(data []byte) (*Message, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch {
	case p.ID != nil && p.Method == nil:
		var resp Response
		if err := strictUnmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if resp.JSONRPC == "" {
			resp.JSONRPC = JSONRPCVersion
		}
		return &Message{Kind: KindResponse, Response: &resp}, nil

	case p.ID != nil && p.Method != nil:
		var req Request
		if err := strictUnmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		if req.JSONRPC == "" {
			req.JSONRPC = JSONRPCVersion
		}
		return &Message{Kind: KindRequest, Request: &req}, nil

	case p.Method != nil:
		var notif Notification
		if err := strictUnmarshal(data, &notif); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		if notif.JSONRPC == "" {
			notif.JSONRPC = JSONRPCVersion
		}
		return &Message{Kind: KindNotification, Notification: &notif}, nil

	default:
		return nil, fmt.Errorf("envelope matches no known message shape")
	}
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
