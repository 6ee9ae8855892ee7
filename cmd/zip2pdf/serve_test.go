package main

// Notes:
// - runServe is started with an already-canceled context so it listens,
//   shuts down and returns without blocking the test.
// - serveUntilDone is exercised on a real loopback listener.

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func TestRunServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	conv := &fakeConverter{swept: 2}
	te := newTestEnv(t, conv, map[string]string{"ZIP2PDF_ADDR": "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runServe(ctx, nil, te.env); err != nil {
		t.Fatalf("runServe() error: %v", err)
	}
	if conv.closed != 1 {
		t.Errorf("Close called %d times, want 1", conv.closed)
	}
	if conv.sweepAge != time.Hour {
		t.Errorf("sweep age = %v, want 1h default", conv.sweepAge)
	}
	if te.calls[0].rec != nil {
		t.Error("recorder set without a history path")
	}
}

func TestRunServe_WithHistory(t *testing.T) {
	t.Parallel()

	conv := &fakeConverter{}
	te := newTestEnv(t, conv, map[string]string{
		"ZIP2PDF_HISTORY_PATH": filepath.Join(t.TempDir(), "history.db"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runServe(ctx, []string{"--addr", "127.0.0.1:0", "-w", "3"}, te.env); err != nil {
		t.Fatalf("runServe() error: %v", err)
	}
	call := te.calls[0]
	if call.rec == nil {
		t.Error("recorder not passed to the converter")
	}
	if call.cfg.Server.Workers != 3 {
		t.Errorf("workers = %d, want 3", call.cfg.Server.Workers)
	}
	if call.cfg.Server.Addr != "127.0.0.1:0" {
		t.Errorf("addr = %q", call.cfg.Server.Addr)
	}
}

func TestRunServe_ListenError(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, &fakeConverter{}, nil)
	err := runServe(context.Background(), []string{"--addr", "256.0.0.1:99999"}, te.env)
	if exitCodeFor(err) != ExitIO {
		t.Errorf("runServe() error = %v, want listen failure", err)
	}
}

func TestServeUntilDone(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, ln, h, time.Second, logger) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveUntilDone() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
