// Package client is the typed request layer over the nutrition REST API.
//
// Every call attaches the bearer token supplied by the configured TokenSource,
// sends and receives JSON, and maps any non-2xx status or network failure to a
// transport error from internal/errors. The client holds no state besides its
// configuration: no caching, no request coalescing, no retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/metrics"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20 // 1MiB
	defaultUserAgent    = "nutrition-core/1.0"

	// RequestIDHeader carries a per-call identifier for server-side tracing.
	RequestIDHeader = "X-Request-ID"
)

// TokenSource yields the bearer token for the next call. An empty token means
// the call is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns the token.
func (s StaticToken) Token() string {
	return string(s)
}

// Config holds client configuration.
type Config struct {
	// BaseURL includes the API version prefix, e.g. http://localhost:8080/api/v1.
	BaseURL string
	// HTTPClient executes requests. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// Tokens supplies the current bearer token. Usually the session holder.
	Tokens TokenSource
	// UserAgent overrides the User-Agent header.
	UserAgent string
	// MaxBodyBytes caps response bodies.
	MaxBodyBytes int64
	Logger       *logger.Logger
	Metrics      *metrics.Collector
}

// Client is a nutrition API client.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenSource
	userAgent    string
	maxBodyBytes int64
	log          *logger.Logger
	metrics      *metrics.Collector
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("client: BaseURL must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("client: BaseURL scheme must be http or https")
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("client: BaseURL must not include user info")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		tokens:       cfg.Tokens,
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
		log:          logger.OrDefault(cfg.Logger, "client"),
		metrics:      cfg.Metrics,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// Internal Methods
// =============================================================================

// call describes one request.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	// out receives the decoded body; nil discards it.
	out interface{}
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) do(ctx context.Context, rc call) error {
	reqURL := c.baseURL + rc.path
	if len(rc.query) > 0 {
		reqURL += "?" + rc.query.Encode()
	}

	var body io.Reader = http.NoBody
	if rc.body != nil {
		data, err := json.Marshal(rc.body)
		if err != nil {
			return apierrors.Internal(rc.op, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, reqURL, body)
	if err != nil {
		return apierrors.Internal(rc.op, fmt.Errorf("create request: %w", err))
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	entry := c.log.WithFields(map[string]interface{}{
		"operation":  rc.op,
		"method":     rc.method,
		"path":       rc.path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordClientCall(rc.op, metrics.OutcomeNetworkError, "", time.Since(start))
		entry.WithError(err).Debug("api call failed")
		return apierrors.Network(rc.op, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	entry = entry.WithField("status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _, _ := readAllWithLimit(resp.Body, 64<<10)
		c.metrics.RecordClientCall(rc.op, metrics.OutcomeHTTPError, status, time.Since(start))
		entry.Debug("api call rejected")
		return apierrors.Transport(rc.op, resp.StatusCode, statusText(resp), errorMessage(raw))
	}

	if rc.out == nil {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodyBytes)); err != nil {
			c.metrics.RecordClientCall(rc.op, metrics.OutcomeNetworkError, status, time.Since(start))
			return apierrors.Network(rc.op, fmt.Errorf("discard response body: %w", err))
		}
		c.metrics.RecordClientCall(rc.op, metrics.OutcomeSuccess, status, time.Since(start))
		entry.Debug("api call succeeded")
		return nil
	}

	raw, truncated, err := readAllWithLimit(resp.Body, c.maxBodyBytes)
	if err != nil {
		c.metrics.RecordClientCall(rc.op, metrics.OutcomeNetworkError, status, time.Since(start))
		return apierrors.Network(rc.op, fmt.Errorf("read response body: %w", err))
	}
	if truncated {
		c.metrics.RecordClientCall(rc.op, metrics.OutcomeDecodeError, status, time.Since(start))
		return apierrors.Internal(rc.op, fmt.Errorf("response body exceeds %d bytes", c.maxBodyBytes))
	}
	if err := json.Unmarshal(raw, rc.out); err != nil {
		c.metrics.RecordClientCall(rc.op, metrics.OutcomeDecodeError, status, time.Since(start))
		return apierrors.Internal(rc.op, fmt.Errorf("decode response: %w", err))
	}

	c.metrics.RecordClientCall(rc.op, metrics.OutcomeSuccess, status, time.Since(start))
	entry.Debug("api call succeeded")
	return nil
}

// readAllWithLimit reads at most limit bytes and reports whether more remained.
func readAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// errorMessage extracts the server's diagnostic from an error body.
func errorMessage(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if gjson.ValidBytes(raw) {
		for _, field := range []string{"message", "error", "error.message"} {
			if v := gjson.GetBytes(raw, field); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
		return ""
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200] + "...(truncated)"
	}
	return msg
}

func segment(field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", apierrors.Required(field)
	}
	return url.PathEscape(value), nil
}
