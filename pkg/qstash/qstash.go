package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client publishes messages through the QStash HTTP API. Destinations are
// plain URLs; QStash owns delivery and retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

/* ------------------------------- Publish -------------------------------- */

type publishRequest struct {
	headers http.Header
}

type PublishOption func(*publishRequest)

// WithDeduplicationID collapses repeat publishes carrying the same id inside
// the QStash deduplication window.
func WithDeduplicationID(id string) PublishOption {
	return func(p *publishRequest) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			p.headers.Set("Upstash-Deduplication-Id", trimmed)
		}
	}
}

func WithDelay(d time.Duration) PublishOption {
	return func(p *publishRequest) {
		if d > 0 {
			p.headers.Set("Upstash-Delay", fmt.Sprintf("%ds", int64(d/time.Second)))
		}
	}
}

func WithRetries(n int) PublishOption {
	return func(p *publishRequest) {
		if n >= 0 {
			p.headers.Set("Upstash-Retries", strconv.Itoa(n))
		}
	}
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

// Publish enqueues a JSON payload for delivery to the destination URL and
// returns the QStash message id.
func (c *Client) Publish(ctx context.Context, destination string, payload any, opts ...PublishOption) (string, error) {
	if c == nil {
		return "", errors.New("nil qstash client")
	}
	dest := strings.TrimSpace(destination)
	if dest == "" {
		return "", errors.New("qstash destination is required")
	}
	if _, err := url.ParseRequestURI(dest); err != nil {
		return "", fmt.Errorf("invalid qstash destination: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal qstash payload: %w", err)
	}

	pub := &publishRequest{headers: http.Header{}}
	for _, opt := range opts {
		if opt != nil {
			opt(pub)
		}
	}

	endpoint := c.baseURL + "/v2/publish/" + dest
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build qstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range pub.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute qstash request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read qstash response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("qstash http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed publishResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode qstash response: %w", err)
	}

	return parsed.MessageID, nil
}
