package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSymbol(t *testing.T) {
	base, quote, err := SplitSymbol("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	for _, bad := range []string{"BTCUSDT", "BTC/", "/USDT", "", "BTC/USDT/X"} {
		_, _, err := SplitSymbol(bad)
		assert.Error(t, err, "symbol %q", bad)
	}
}

func TestTransportGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/test", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("x"))
		assert.Equal(t, "liqwatch/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "v", r.Header.Get("X-Custom"))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	tr := NewTransport("test", srv.URL, 5*time.Second, 1000)
	body, err := tr.Get(context.Background(), "/api/test",
		url.Values{"x": {"1"}}, http.Header{"X-Custom": {"v"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
}

func TestTransportGet_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewTransport("test", srv.URL, 5*time.Second, 1000)
	_, err := tr.Get(context.Background(), "/api/test", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTransportGet_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTransport("test", srv.URL, 5*time.Second, 1000)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := tr.Get(ctx, "/api/test", nil, nil)
		require.Error(t, err)
	}

	// Sixth call fails fast without reaching the server.
	before := atomic.LoadInt32(&hits)
	_, err := tr.Get(ctx, "/api/test", nil, nil)
	require.Error(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&hits))
}
