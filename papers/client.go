// Package papers is the HTTP client for the summarization backend: paper
// search, record fetch, fingerprint lookup, and task enqueue.
//
// The client reports transport and decode failures as errors and a definitive
// backend "not found" as ErrNotFound; policy decisions (fail-open dedup, poll
// continuation) belong to the caller.
package papers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scrivano/precis/safeid"
)

// ErrNotFound is returned when the backend answers that no record exists:
// a 404, a "No data found" message, or a payload without identity.
var ErrNotFound = errors.New("papers: record not found")

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:5000".
	BaseURL string

	// Timeout bounds each request (default 30s).
	Timeout time.Duration

	// MaxBodyBytes caps response reads (default 1 MiB).
	MaxBodyBytes int64

	// UserAgent sent with every request.
	UserAgent string

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client

	// Logger for request diagnostics.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "precis/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client talks to the summarization backend.
type Client struct {
	base    string
	hc      *http.Client
	maxBody int64
	ua      string
	logger  *slog.Logger
}

// New creates a Client. The base URL must be an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	if err := safeid.ValidateURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("papers: base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		hc:      hc,
		maxBody: cfg.MaxBodyBytes,
		ua:      cfg.UserAgent,
		logger:  cfg.Logger,
	}, nil
}

// Search runs a paged query. page is zero-based; sort defaults to relevance
// when empty.
func (c *Client) Search(ctx context.Context, query string, page int, sort Sort) (*SearchPage, error) {
	if sort == "" {
		sort = SortRelevance
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("sort_by", string(sort))

	body, status, err := c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("papers: search: unexpected status %d", status)
	}

	var wire struct {
		Papers       []wirePaper `json:"papers"`
		TotalResults int         `json:"total_results"`
		Page         int         `json:"page"`
		PageSize     int         `json:"page_size"`
		HasNextPage  bool        `json:"has_next_page"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("papers: search: decode: %w", err)
	}

	out := &SearchPage{
		TotalResults: wire.TotalResults,
		Page:         wire.Page,
		PageSize:     wire.PageSize,
		HasNextPage:  wire.HasNextPage,
	}
	for _, wp := range wire.Papers {
		if rec, ok := wp.record(); ok {
			out.Papers = append(out.Papers, rec)
		}
	}
	c.logger.Debug("papers: search", "query", query, "page", page, "results", len(out.Papers))
	return out, nil
}

// Get fetches the record for an identifier. A definitive miss is ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/paper/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, ErrNotFound
	case status != http.StatusOK:
		return nil, fmt.Errorf("papers: get %q: unexpected status %d", id, status)
	}
	if bytes.Contains(body, []byte("No data found")) {
		return nil, ErrNotFound
	}

	var wp wirePaper
	if err := json.Unmarshal(body, &wp); err != nil {
		return nil, fmt.Errorf("papers: get %q: decode: %w", id, err)
	}
	rec, ok := wp.record()
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// CheckHash looks up a content fingerprint. A hit returns the existing
// record; any miss-shaped answer (non-2xx, missing identifier) is
// ErrNotFound. Transport failures are returned as-is — the caller's dedup
// policy decides how they degrade.
func (c *Client) CheckHash(ctx context.Context, fp string) (*Record, error) {
	payload := map[string]string{"hashId": fp}
	body, status, err := c.do(ctx, http.MethodPost, "/paper/hash", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, ErrNotFound
	}

	var wp wirePaper
	if err := json.Unmarshal(body, &wp); err != nil {
		return nil, ErrNotFound
	}
	rec, ok := wp.record()
	if !ok || rec.ID == "" {
		return nil, ErrNotFound
	}
	c.logger.Debug("papers: hash hit", "fingerprint", fp, "id", rec.ID)
	return &rec, nil
}

// Enqueue submits a summarization task. Success means the backend accepted
// the descriptor; there are no retries at this layer.
func (c *Client) Enqueue(ctx context.Context, task Task) error {
	body, status, err := c.do(ctx, http.MethodPost, "/enqueue", task)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("papers: enqueue %q: status %d: %s", task.ArxivID, status, snippet(body))
	}
	c.logger.Debug("papers: enqueued", "id", task.ArxivID, "manual", task.ManualUpload)
	return nil
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, status, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("papers: health: status %d", status)
	}
	return nil
}

// do issues one request and returns the bounded body and status code.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("papers: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("papers: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.ua)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("papers: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("papers: read response: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return nil, resp.StatusCode, fmt.Errorf("papers: response exceeds %d bytes", c.maxBody)
	}
	return data, resp.StatusCode, nil
}

// snippet trims a response body for error messages.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 120 {
		s = s[:120] + "…"
	}
	if s == "" {
		s = "<empty>"
	}
	return s
}
