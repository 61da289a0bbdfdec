package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: 2 * time.Second,
	}}
}

func TestGracefulServer_RunsHooksOnShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}
	gs := NewGracefulServer(srv, slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig())

	var ran atomic.Int32
	gs.RegisterShutdownHook(func(context.Context) error {
		ran.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, int32(1), ran.Load())
}

func TestGracefulServer_HookError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig())
	hookErr := errors.New("flush failed")
	gs.RegisterShutdownHook(func(context.Context) error { return hookErr })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, gs.Serve(ctx, ln), hookErr)
}
