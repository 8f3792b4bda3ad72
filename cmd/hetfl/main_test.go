package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/absmach/supermq/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	return port
}

func TestNewMetricsServer(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("disabled without port", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		assert.Nil(t, newMetricsServer(ctx, cancel, server.Config{Host: "127.0.0.1"}, logger))
	})

	t.Run("serves metrics until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := server.Config{Host: "127.0.0.1", Port: freePort(t)}
		hs := newMetricsServer(ctx, cancel, cfg, logger)
		require.NotNil(t, hs)

		done := make(chan error, 1)
		go func() { done <- hs.Start() }()

		url := "http://" + net.JoinHostPort(cfg.Host, cfg.Port) + "/metrics"
		require.Eventually(t, func() bool {
			resp, err := http.Get(url)
			if err != nil {
				return false
			}
			resp.Body.Close()

			return resp.StatusCode == http.StatusOK
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(server.StopWaitTime + time.Second):
			t.Fatal("metrics server did not stop")
		}
	})
}
