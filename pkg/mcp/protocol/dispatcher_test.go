package protocol

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Bigsy/mcpmu/pkg/mcp/transport"
)

type echoParams struct {
	Message string `json:"message"`
}

func TestDispatcherRequestResponseRoundTrip(t *testing.T) {
	a, b := transport.NewInMemoryPair()

	server := New(b)
	server.RegisterRequestHandler("echo", func(ctx context.Context, params json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return echoParams{Message: p.Message}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	client := New(a)
	go client.Run(ctx)

	raw, err := client.Request(ctx, "echo", echoParams{Message: "hi"}, DefaultRequestOptions())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var result echoParams
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Message != "hi" {
		t.Fatalf("expected echo of 'hi', got %q", result.Message)
	}
}

func TestDispatcherMethodNotFound(t *testing.T) {
	a, b := transport.NewInMemoryPair()

	server := New(b)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	client := New(a)
	go client.Run(ctx)

	_, err := client.Request(ctx, "nonexistent", nil, DefaultRequestOptions())
	if err == nil {
		t.Fatalf("expected MethodNotFound error")
	}
}

func TestDispatcherRequestTimeout(t *testing.T) {
	a, b := transport.NewInMemoryPair()

	server := New(b)
	server.RegisterRequestHandler("slow", func(ctx context.Context, params json.RawMessage) (any, error) {
		<-ctx.Done() // never responds within the test's window
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	client := New(a)
	go client.Run(ctx)

	_, err := client.Request(ctx, "slow", nil, DefaultRequestOptions().WithTimeout(50*time.Millisecond))
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestDispatcherConcurrentRequestsDoNotBlockEachOther(t *testing.T) {
	a, b := transport.NewInMemoryPair()

	server := New(b)
	server.RegisterRequestHandler("slow", func(ctx context.Context, params json.RawMessage) (any, error) {
		time.Sleep(100 * time.Millisecond)
		return "slow-done", nil
	})
	server.RegisterRequestHandler("fast", func(ctx context.Context, params json.RawMessage) (any, error) {
		return "fast-done", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	client := New(a)
	go client.Run(ctx)

	done := make(chan struct{})
	go func() {
		_, _ = client.Request(ctx, "slow", nil, DefaultRequestOptions())
		close(done)
	}()

	start := time.Now()
	_, err := client.Request(ctx, "fast", nil, DefaultRequestOptions())
	if err != nil {
		t.Fatalf("fast request: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 80*time.Millisecond {
		t.Fatalf("fast request was blocked by slow handler: took %v", elapsed)
	}
	<-done
}
