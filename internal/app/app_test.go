package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/config"
)

func TestRunPaperModeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var activityCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost:
			// JSON-RPC: balanceOf fails, so sizing falls back to live balances.
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"unavailable"}}`)
		case r.URL.Path == "/activity":
			activityCalls.Add(1)
			_, _ = io.WriteString(w, `[]`)
			cancel()
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Mode = "paper"
	cfg.Copy.TargetAddress = "0x1111111111111111111111111111111111111111"
	cfg.Copy.FollowerAddress = "0x2222222222222222222222222222222222222222"
	cfg.Polymarket.DataHost = srv.URL
	cfg.Polymarket.ClobHost = srv.URL
	cfg.Chain.RPCURL = srv.URL
	require.NoError(t, cfg.Validate())

	a := New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer a.Close()

	err := a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), activityCalls.Load())
}
