// Package postiz wraps the Postiz scheduling API: channel discovery, media
// upload, and post creation.
package postiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nightshift/internal/config"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultOverallTimeout = 10 * time.Minute
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
	maxJitter             = 750 * time.Millisecond
)

// Client talks to a Postiz instance. Retries are exponential with jitter
// under an overall per-operation deadline.
type Client struct {
	cfg        config.Postiz
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	overallTimeout   time.Duration
	sleeper          func(time.Duration)
	jitter           func() time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithOverallTimeout overrides the per-operation deadline.
func WithOverallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.overallTimeout = timeout
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithJitter overrides the backoff jitter source (useful for tests).
func WithJitter(jitter func() time.Duration) Option {
	return func(c *Client) {
		c.jitter = jitter
	}
}

// NewClient constructs a Postiz client from configuration.
func NewClient(cfg config.Postiz, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("postiz: base url required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("postiz: api key required")
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Postiz{
			APIKey:              strings.TrimSpace(cfg.APIKey),
			BaseURL:             baseURL,
			DefaultPlatform:     cfg.DefaultPlatform,
			ScheduleLeadMinutes: cfg.ScheduleLeadMinutes,
			TimeoutSeconds:      cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		overallTimeout:   defaultOverallTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.jitter == nil {
		client.jitter = func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		}
	}
	return client, nil
}

// FormatScheduleDate renders a slot the way the posts endpoint expects:
// whole-second UTC with a trailing Z.
func FormatScheduleDate(at time.Time) string {
	return at.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// ListIntegrations fetches all connected channels, including disabled ones.
func (c *Client) ListIntegrations(ctx context.Context) ([]Integration, error) {
	var integrations []Integration
	err := c.doWithRetry(ctx, "list integrations", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/integrations", nil)
	}, &integrations)
	if err != nil {
		return nil, err
	}
	return integrations, nil
}

// Upload pushes a local media file and returns the created asset.
func (c *Client) Upload(ctx context.Context, path string) (*UploadedAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("postiz upload: read file: %w", err)
	}
	name := filepath.Base(path)
	contentType := guessContentType(name)

	var asset UploadedAsset
	err = c.doWithRetry(ctx, "upload", func(ctx context.Context) (*http.Request, error) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("postiz upload: create part: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("postiz upload: write part: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("postiz upload: close multipart: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", bytes.NewReader(body.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}, &asset)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(asset.ID) == "" {
		return nil, errors.New("postiz upload: response missing asset id")
	}
	return &asset, nil
}

// Schedule creates the posts in a bundle and returns the created post ids.
func (c *Client) Schedule(ctx context.Context, bundle ScheduleBundle) ([]ScheduledPost, error) {
	if bundle.Type == "" {
		bundle.Type = "schedule"
	}
	if bundle.Tags == nil {
		bundle.Tags = []string{}
	}
	if len(bundle.Posts) == 0 {
		return nil, errors.New("postiz schedule: bundle has no posts")
	}
	encoded, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("postiz schedule: encode bundle: %w", err)
	}

	var created []ScheduledPost
	err = c.doWithRetry(ctx, "schedule", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/posts", bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func guessContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("postiz request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// doWithRetry runs the request built by build, decoding the JSON response
// into out when out is non-nil. The request is rebuilt for every attempt.
func (c *Client) doWithRetry(ctx context.Context, op string, build func(context.Context) (*http.Request, error), out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.overallTimeout)
	defer cancel()

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.doOnce(ctx, build, out)
		if err == nil {
			return nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return fmt.Errorf("postiz %s: %w", op, err)
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("postiz %s: %w", op, sleepErr)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return fmt.Errorf("postiz %s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, build func(context.Context) (*http.Request, error), out any) error {
	req, err := build(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles per retry starting at twice the base, plus jitter.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if delay >= c.maxDelay() {
			break
		}
		delay *= 2
	}
	return c.capDelay(delay) + c.jitter()
}

func (c *Client) maxDelay() time.Duration {
	if c.retryMaxDelay > 0 {
		return c.retryMaxDelay
	}
	return defaultRetryMaxDelay
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if limit := c.maxDelay(); delay > limit {
		return limit
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
