package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport is a ports.Transport that POSTs each envelope to a server built
// with NewHandler.
type Transport struct {
	url    string
	client *http.Client
	// owned is false for a client passed with WithHTTPClient.
	owned bool
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sends through c instead of a private client. Close leaves
// c untouched.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		t.client, t.owned = c, false
	}
}

// NewTransport targets base, e.g. "http://localhost:8080".
func NewTransport(base string, opts ...TransportOption) *Transport {
	t := &Transport{
		url:    strings.TrimRight(base, "/") + RequestPath,
		client: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		owned:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) RoundTrip(ctx context.Context, request []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(request))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return body, nil
}

// Close drops the idle keep-alive connections of the transport's own client.
func (t *Transport) Close() error {
	if t.owned {
		t.client.CloseIdleConnections()
	}
	return nil
}
