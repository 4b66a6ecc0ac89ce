package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"liqwatch/internal/model"
)

// Discord posts alerts to a Discord webhook as embeds.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord creates a Discord notifier for the given webhook URL.
func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds,omitempty"`
}

type embed struct {
	Title     string       `json:"title,omitempty"`
	Color     int          `json:"color,omitempty"`
	Fields    []embedField `json:"fields,omitempty"`
	Footer    *embedFooter `json:"footer,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text,omitempty"`
}

// Send posts one alert as an embed. Non-2xx responses are errors.
func (d *Discord) Send(ctx context.Context, alert model.AlertCandidate) error {
	e := embed{
		Title:     alert.Message,
		Color:     severityColor(alert.Severity),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer:    &embedFooter{Text: "liqwatch"},
		Fields: []embedField{
			{Name: "Severity", Value: string(alert.Severity), Inline: true},
		},
	}
	if alert.Venue != nil {
		e.Fields = append(e.Fields, embedField{Name: "Venue", Value: string(*alert.Venue), Inline: true})
	}

	// Sorted detail keys keep embeds stable between runs.
	keys := make([]string, 0, len(alert.Details))
	for k := range alert.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Fields = append(e.Fields, embedField{
			Name:   k,
			Value:  fmt.Sprintf("%.4f", alert.Details[k]),
			Inline: true,
		})
	}

	payload := webhookPayload{Username: "liqwatch", Embeds: []embed{e}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func severityColor(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 0xFF0000
	case model.SeverityWarning:
		return 0xFF6600
	default:
		return 0x0099FF
	}
}
