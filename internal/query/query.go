// Package query forwards scoped queries to the external query-processing service.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hongminglow/dealer-gateway/internal/identity"
)

// Processor answers a query on behalf of an identity. Implementations apply
// any role-based masking using the identity they are handed.
type Processor interface {
	Process(ctx context.Context, query string, id identity.Context) (string, error)
}

// Signer produces the bearer assertion presented to the query service.
type Signer interface {
	Sign(id identity.Context) (string, error)
}

// Client calls a remote query service over HTTP.
type Client struct {
	endpoint string
	signer   Signer
	http     *http.Client
}

// NewClient builds a client posting to baseURL + "/process".
func NewClient(baseURL string, signer Signer, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/process",
		signer:   signer,
		http:     httpClient,
	}
}

// Request is the body sent to the query service.
type Request struct {
	Query    string           `json:"query"`
	Identity identity.Context `json:"identity"`
}

// Response is the body returned by the query service.
type Response struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// Process posts the query with the identity and a signed assertion of it.
func (c *Client) Process(ctx context.Context, query string, id identity.Context) (string, error) {
	body, err := json.Marshal(Request{Query: query, Identity: id})
	if err != nil {
		return "", fmt.Errorf("encode query request: %w", err)
	}
	token, err := c.signer.Sign(id)
	if err != nil {
		return "", fmt.Errorf("sign identity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("query service request: %w", err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode query response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("query service status %d: %s", resp.StatusCode, out.Error)
	}
	return out.Answer, nil
}
