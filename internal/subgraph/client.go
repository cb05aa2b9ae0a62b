// Package subgraph is a minimal GraphQL-over-HTTP client for TheGraph hosted
// subgraphs, plus the typed raw records the Aave subgraphs return.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// TransportError covers network failures, timeouts, non-2xx responses and
// GraphQL-level errors from an upstream subgraph. It is recoverable from the
// caller's point of view: the whole fetch may be retried.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("subgraph %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("subgraph %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client issues GraphQL queries over HTTP POST.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client with the given per-request timeout.
// A zero timeout falls back to 30s; upstream calls are never unbounded.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

type graphRequest struct {
	Query string `json:"query"`
}

type graphError struct {
	Message string `json:"message"`
}

type graphEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphError    `json:"errors"`
}

// Query posts a GraphQL query to url and decodes the data payload into out.
// Any network, HTTP or GraphQL-level failure is reported as *TransportError.
func (c *Client) Query(ctx context.Context, url, query string, out any) error {
	body, err := json.Marshal(graphRequest{Query: query})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	var envelope graphEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &TransportError{URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(envelope.Errors) > 0 {
		return &TransportError{URL: url, Err: fmt.Errorf("graphql: %s", envelope.Errors[0].Message)}
	}
	if envelope.Data == nil {
		return &TransportError{URL: url, Err: fmt.Errorf("empty data payload")}
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &TransportError{URL: url, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
