// Package backend is the HTTP client for the scraper backend: it lists
// participants, triggers refreshes, imports rosters and exports reports.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/metrics"
)

const maxErrorBody = 4 << 10

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// DefaultClientConfig returns a config for baseURL with a 15s timeout.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:   baseURL,
		Timeout:   15 * time.Second,
		UserAgent: "trailblaze-leaderboard/1.0",
	}
}

// Client talks to the scraper backend. Every call except Export is bounded
// by the configured timeout; Export only bounds the wait for response
// headers so long downloads are not cut off.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg ClientConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Transport: transport},
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.base.String() }

// Students fetches the full participant snapshot.
func (c *Client) Students(ctx context.Context) ([]participant.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, "students", http.MethodGet, "/students", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	records, _, err := participant.DecodeSnapshot(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: students: %w", ErrDecode, err)
	}
	return records, nil
}

// Scrape triggers a refresh of one participant. It returns once the backend
// accepted or rejected the trigger, not when the refresh completes.
func (c *Client) Scrape(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, "scrape", http.MethodPost, "/scrape/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// ScrapeAll triggers a refresh of every participant.
func (c *Client) ScrapeAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, "scrape_all", http.MethodPost, "/scrape-all", nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// UploadResult is the backend's answer to a roster import.
type UploadResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Upload streams a roster file to the backend. The file is not inspected.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.do(ctx, "upload", http.MethodPost, "/upload", pr, mw.FormDataContentType())
	if err != nil {
		_ = pr.CloseWithError(err)
		return UploadResult{}, err
	}
	defer resp.Body.Close()

	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return UploadResult{}, fmt.Errorf("%w: upload: %w", ErrDecode, err)
	}
	return out, nil
}

// Export is a streamed report. The caller must close Body.
type Export struct {
	Body          io.ReadCloser
	ContentType   string
	Filename      string
	ContentLength int64
}

// Export opens the backend's spreadsheet export. The body is bounded only by
// ctx.
func (c *Client) Export(ctx context.Context) (*Export, error) {
	resp, err := c.do(ctx, "export", http.MethodGet, "/export", nil, "")
	if err != nil {
		return nil, err
	}
	return &Export{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Filename:      exportFilename(resp.Header.Get("Content-Disposition")),
	}, nil
}

const defaultExportFilename = "leaderboard.xlsx"

// exportFilename reads the filename parameter of a Content-Disposition
// header. Directory parts are dropped.
func exportFilename(disposition string) string {
	if disposition == "" {
		return defaultExportFilename
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return defaultExportFilename
	}
	name := params["filename"]
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return defaultExportFilename
	}
	return name
}

// do issues a request and returns the response for 2xx replies. Other
// replies are closed and turned into a *StatusError.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := c.http.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordBackendRequest(op, "transport_error", elapsed)
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
	metrics.RecordBackendRequest(op, strconv.Itoa(resp.StatusCode), elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &StatusError{Operation: op, Code: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	return resp, nil
}

// errorMessage extracts {"detail": "..."} or the raw body text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
