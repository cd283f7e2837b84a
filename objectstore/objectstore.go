// Package objectstore stores produced PDF artifacts and returns the URL the
// backend will fetch them from.
//
// Two backends are supported: a plain HTTP PUT endpoint (the default) and an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scrivano/precis/safeid"
)

// Uploader stores one artifact under a name and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// Kind selects the storage backend.
type Kind string

const (
	KindHTTP Kind = "http"
	KindS3   Kind = "s3"
)

// Config selects and configures a storage backend.
type Config struct {
	// Kind is "http" (default) or "s3".
	Kind Kind

	HTTP HTTPConfig
	S3   S3Config

	Logger *slog.Logger
}

// New builds the uploader for cfg.Kind.
func New(cfg Config) (Uploader, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch cfg.Kind {
	case KindHTTP, "":
		cfg.HTTP.Logger = cfg.Logger
		return NewHTTP(cfg.HTTP)
	case KindS3:
		cfg.S3.Logger = cfg.Logger
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("objectstore: unknown kind %q", cfg.Kind)
	}
}

// HTTPConfig configures the PUT-based uploader.
type HTTPConfig struct {
	// BaseURL is the artifact endpoint root; objects are PUT at
	// BaseURL/<name>.
	BaseURL string

	// Timeout bounds each upload (default 120s; artifacts can be large).
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "precis/1.0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// HTTPUploader PUTs artifacts to an HTTP endpoint.
type HTTPUploader struct {
	base   string
	hc     *http.Client
	ua     string
	logger *slog.Logger
}

// NewHTTP creates the PUT-based uploader.
func NewHTTP(cfg HTTPConfig) (*HTTPUploader, error) {
	cfg.defaults()
	if err := safeid.ValidateURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("objectstore: base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPUploader{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		hc:     hc,
		ua:     cfg.UserAgent,
		logger: cfg.Logger,
	}, nil
}

// Put uploads data as application/pdf and returns the object URL.
func (u *HTTPUploader) Put(ctx context.Context, name string, data []byte) (string, error) {
	// The name ends up in a URL path and on the remote filesystem.
	if err := safeid.ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("objectstore: object name: %w", err)
	}
	target := u.base + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("objectstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("User-Agent", u.ua)

	resp, err := u.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("objectstore: put %s: %w", name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("objectstore: put %s: status %d", name, resp.StatusCode)
	}
	u.logger.Debug("objectstore: stored", "name", name, "bytes", len(data), "url", target)
	return target, nil
}
