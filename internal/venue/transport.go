package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const userAgent = "liqwatch/1.0"

// Transport wraps an HTTP client with a token-bucket rate limiter and a
// circuit breaker. One Transport per venue so a flapping exchange trips its
// own breaker without affecting the other.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewTransport creates a transport for one venue endpoint.
func NewTransport(name, baseURL string, timeout time.Duration, rps float64) *Transport {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Transport{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		breaker: gobreaker.NewCircuitBreaker(settings),
		baseURL: baseURL,
	}
}

// Get performs a rate-limited GET through the circuit breaker and returns the
// response body. Non-2xx statuses are errors and count against the breaker.
func (t *Transport) Get(ctx context.Context, path string, query url.Values, headers http.Header) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := t.breaker.Execute(func() (interface{}, error) {
		return t.doGet(ctx, path, query, headers)
	})
	if err != nil {
		return nil, err
	}

	return body.([]byte), nil
}

func (t *Transport) doGet(ctx context.Context, path string, query url.Values, headers http.Header) ([]byte, error) {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
