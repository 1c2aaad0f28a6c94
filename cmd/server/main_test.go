package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeServer struct {
	runErr      error
	block       chan struct{}
	shutdowns   int
	shutdownErr error
}

func (f *fakeServer) Run() error {
	if f.block != nil {
		<-f.block
	}
	return f.runErr
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns++
	if f.block != nil {
		close(f.block)
	}
	return f.shutdownErr
}

func TestServeShutsDownAfterListenerFailure(t *testing.T) {
	bindErr := errors.New("listen tcp :4101: bind: address already in use")
	srv := &fakeServer{runErr: bindErr}

	err := serve(context.Background(), srv, time.Second, zap.NewNop())
	if !errors.Is(err, bindErr) {
		t.Fatalf("expected listener error, got %v", err)
	}
	if srv.shutdowns != 1 {
		t.Fatalf("expected one shutdown, got %d", srv.shutdowns)
	}
}

func TestServeJoinsShutdownError(t *testing.T) {
	bindErr := errors.New("bind failed")
	closeErr := errors.New("pool close failed")
	srv := &fakeServer{runErr: bindErr, shutdownErr: closeErr}

	err := serve(context.Background(), srv, time.Second, zap.NewNop())
	if !errors.Is(err, bindErr) || !errors.Is(err, closeErr) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestServeShutsDownOnSignal(t *testing.T) {
	srv := &fakeServer{runErr: http.ErrServerClosed, block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := serve(ctx, srv, time.Second, zap.NewNop()); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if srv.shutdowns != 1 {
		t.Fatalf("expected one shutdown, got %d", srv.shutdowns)
	}
}
