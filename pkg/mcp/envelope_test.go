package mcp

import "testing"

func TestDecodeMessageRequest(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Kind != KindRequest {
		t.Fatalf("expected KindRequest, got %v", msg.Kind)
	}
	if msg.Request.Method != "tools/list" || msg.Request.ID != 1 {
		t.Fatalf("unexpected request: %+v", msg.Request)
	}
}

func TestDecodeMessageResponse(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Kind != KindResponse {
		t.Fatalf("expected KindResponse, got %v", msg.Kind)
	}
	if msg.Response.ID != 1 {
		t.Fatalf("unexpected response: %+v", msg.Response)
	}
}

func TestDecodeMessageNotification(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Kind != KindNotification {
		t.Fatalf("expected KindNotification, got %v", msg.Kind)
	}
	if msg.Notification.Method != "notifications/initialized" {
		t.Fatalf("unexpected notification: %+v", msg.Notification)
	}
}

func TestDecodeMessageDefaultsJSONRPCVersion(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Request.JSONRPC != JSONRPCVersion {
		t.Fatalf("expected default jsonrpc version, got %q", msg.Request.JSONRPC)
	}
}

func TestDecodeMessageRejectsUnknownFields(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping","bogus":true}`))
	if err == nil {
		t.Fatalf("expected error for unknown envelope field")
	}
}

func TestDecodeMessageRejectsEmptyShape(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"jsonrpc":"2.0"}`))
	if err == nil {
		t.Fatalf("expected error for a message matching no variant")
	}
}
