package server_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Bigsy/mcpmu/pkg/mcp"
	mcpserver "github.com/Bigsy/mcpmu/pkg/mcp/server"
	"github.com/Bigsy/mcpmu/pkg/mcp/transport"
	"github.com/Bigsy/mcpmu/pkg/mcp/protocol"
)

func TestToolsListBeforeInitializedReportsExactMessage(t *testing.T) {
	clientTr, serverTr := transport.NewInMemoryPair()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := mcpserver.NewBuilder("s", "1.0", mcp.ProtocolVersion20241105).Build()
	go srv.Serve(ctx, serverTr)

	d := protocol.New(clientTr)
	go d.Run(ctx)

	_, err := d.Request(ctx, "tools/list", mcp.ListRequest{}, protocol.DefaultRequestOptions())
	if err == nil {
		t.Fatalf("expected error")
	}
	rpcErr, ok := err.(*mcp.RPCError)
	if !ok {
		t.Fatalf("expected *mcp.RPCError, got %T", err)
	}
	if !strings.Contains(rpcErr.Message, "Client not initialized") {
		t.Fatalf("expected message to contain 'Client not initialized', got %q", rpcErr.Message)
	}
}

func TestPingAlwaysAnswered(t *testing.T) {
	clientTr, serverTr := transport.NewInMemoryPair()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := mcpserver.NewBuilder("s", "1.0", mcp.ProtocolVersion20241105).Build()
	go srv.Serve(ctx, serverTr)

	d := protocol.New(clientTr)
	go d.Run(ctx)

	if _, err := d.Request(ctx, "ping", nil, protocol.DefaultRequestOptions()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestInitializeOmitsEmptyCapabilityBlocks(t *testing.T) {
	clientTr, serverTr := transport.NewInMemoryPair()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := mcpserver.NewBuilder("s", "1.0", mcp.ProtocolVersion20241105).Build()
	go srv.Serve(ctx, serverTr)

	d := protocol.New(clientTr)
	go d.Run(ctx)

	raw, err := d.Request(ctx, "initialize", mcp.InitializeRequest{ProtocolVersion: mcp.ProtocolVersion20241105}, protocol.DefaultRequestOptions())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	var result struct {
		Capabilities json.RawMessage `json:"capabilities"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(result.Capabilities) != "{}" {
		t.Fatalf("expected empty capabilities object, got %s", string(result.Capabilities))
	}
}
