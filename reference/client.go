// Package reference looks up Manim API documentation so unresolved symbols
// can be confirmed before they are reused.
package reference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://context7.com"
	DefaultLibraryID = "/3b1b/manim"
	DefaultTimeout   = 10 * time.Second

	contextPath = "/api/v2/context"
)

var (
	ErrNoAPIKey        = errors.New("reference: api key not set")
	ErrEmptyQuery      = errors.New("reference: query cannot be empty")
	ErrNoDocumentation = errors.New("reference: no documentation found for this query")
)

// Settings configures a Client.
type Settings struct {
	APIKey    string
	BaseURL   string
	LibraryID string
	Timeout   time.Duration
}

// Client queries the context7 documentation API.
type Client struct {
	apiKey    string
	baseURL   string
	libraryID string
	http      *http.Client
	logger    *zap.Logger
}

func New(s Settings, client *http.Client, logger *zap.Logger) (*Client, error) {
	if s.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.LibraryID == "" {
		s.LibraryID = DefaultLibraryID
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: s.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:    s.APIKey,
		baseURL:   strings.TrimRight(s.BaseURL, "/"),
		libraryID: s.LibraryID,
		http:      client,
		logger:    logger,
	}, nil
}

type contextResp struct {
	CodeSnippets []json.RawMessage `json:"codeSnippets"`
}

// Lookup returns the documentation matching query as indented JSON.
func (c *Client) Lookup(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+contextPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("CONTEXT7_API_KEY", c.apiKey)
	q := url.Values{}
	q.Set("libraryId", c.libraryID)
	q.Set("query", query)
	q.Set("type", "json")
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reference: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("reference: api returned status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("reference: invalid json response: %w", err)
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil || len(data) == 0 {
		return "", errors.New("reference: empty response")
	}
	if _, ok := data["codeSnippets"]; !ok {
		return "", errors.New("reference: unexpected response format")
	}
	var parsed contextResp
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("reference: unexpected response format: %w", err)
	}
	if len(parsed.CodeSnippets) == 0 {
		return "", ErrNoDocumentation
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	c.logger.Debug("reference lookup", zap.String("query", query), zap.Int("snippets", len(parsed.CodeSnippets)))
	return out.String(), nil
}
