package httpserver

import (
	"context"
	"net"
	"testing"
	"time"

	"dabba-checkout/internal/logging"
)

func TestNewRequiresCheckout(t *testing.T) {
	if _, err := New("127.0.0.1:0", logging.Discard(), nil, Deps{}, time.Second); err == nil {
		t.Fatalf("expected error without checkout pipeline")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, err := New("127.0.0.1:0", logging.Discard(), nil, Deps{Checkout: &stubPipeline{}}, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv, err := New(ln.Addr().String(), logging.Discard(), nil, Deps{Checkout: &stubPipeline{}}, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Run(context.Background()); err == nil {
		t.Fatalf("expected error for address in use")
	}
}
