package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liqwatch/internal/model"
)

func TestDiscordSend(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	venue := model.VenueMEXC
	d := NewDiscord(srv.URL, 5*time.Second)
	err := d.Send(context.Background(), model.AlertCandidate{
		Type:     model.AlertSpreadCritical,
		Severity: model.SeverityCritical,
		Venue:    &venue,
		Message:  "Spread on mexc is 4.00%",
		Details: map[string]float64{
			"spread_percent": 4,
			"best_bid":       99,
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	e := got.Embeds[0]
	assert.Equal(t, "Spread on mexc is 4.00%", e.Title)
	assert.Equal(t, 0xFF0000, e.Color)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "liqwatch", e.Footer.Text)

	// Severity, venue, then detail fields sorted by key.
	require.Len(t, e.Fields, 4)
	assert.Equal(t, "Severity", e.Fields[0].Name)
	assert.Equal(t, "Venue", e.Fields[1].Name)
	assert.Equal(t, "best_bid", e.Fields[2].Name)
	assert.Equal(t, "spread_percent", e.Fields[3].Name)
}

func TestDiscordSend_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, 5*time.Second)
	err := d.Send(context.Background(), model.AlertCandidate{Type: model.AlertDepthWarning})
	assert.ErrorContains(t, err, "429")
}

func TestSeverityColors(t *testing.T) {
	assert.Equal(t, 0xFF0000, severityColor(model.SeverityCritical))
	assert.Equal(t, 0xFF6600, severityColor(model.SeverityWarning))
	assert.Equal(t, 0x0099FF, severityColor(model.SeverityInfo))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Send(context.Background(), model.AlertCandidate{}))
}
