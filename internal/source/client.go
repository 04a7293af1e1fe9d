package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/verity/verity/internal/model"
	"github.com/verity/verity/internal/util"
)

// ErrNotFound is returned when the service has no such application
var ErrNotFound = errors.New("application not found")

// Client reads application metadata and document bytes from the internal
// application service
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxBytes   int64
}

// NewClient creates a client from configuration
func NewClient(cfg model.SourceConfig, proxy model.ProxyConfig) *Client {
	httpClient := util.NewHTTPClient(cfg.Timeout, proxy)
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
	}
}

// Application fetches the metadata and declared documents of one application
func (c *Client) Application(ctx context.Context, id string) (*model.Application, error) {
	body, err := c.get(ctx, "applications", id, "data")
	if err != nil {
		return nil, err
	}

	var app model.Application
	if err := json.Unmarshal(body, &app); err != nil {
		return nil, fmt.Errorf("decode application %s: %w", id, err)
	}
	if app.ID == "" {
		app.ID = id
	}
	return &app, nil
}

// Document downloads the raw bytes of one declared document kind
func (c *Client) Document(ctx context.Context, applicationID, kind string) ([]byte, error) {
	return c.get(ctx, "documents", applicationID, kind)
}

func (c *Client) get(ctx context.Context, segments ...string) ([]byte, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	rawURL := c.baseURL + "/" + strings.Join(escaped, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// one extra byte detects oversized bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", c.maxBytes)
	}
	return body, nil
}
