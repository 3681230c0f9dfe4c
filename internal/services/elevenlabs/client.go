// Package elevenlabs wraps the ElevenLabs text-to-speech API, returning raw
// PCM audio together with character-level timing alignment.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nightshift/internal/captions"
	"nightshift/internal/config"
)

const (
	defaultBaseURL        = "https://api.elevenlabs.io"
	defaultModelID        = "eleven_multilingual_v2"
	defaultOutputFormat   = "pcm_24000"
	defaultSampleRate     = 24000
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// Client calls the with-timestamps synthesis endpoint.
type Client struct {
	cfg        config.ElevenLabs
	baseURL    string
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (useful for tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
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

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a synthesis client from configuration.
func NewClient(cfg config.ElevenLabs, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.ElevenLabs{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			VoiceID:        strings.TrimSpace(cfg.VoiceID),
			ModelID:        strings.TrimSpace(cfg.ModelID),
			OutputFormat:   strings.TrimSpace(cfg.OutputFormat),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		baseURL:          defaultBaseURL,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.ModelID == "" {
		client.cfg.ModelID = defaultModelID
	}
	if client.cfg.OutputFormat == "" {
		client.cfg.OutputFormat = defaultOutputFormat
	}
	return client
}

// OutputFormat returns the effective audio output format.
func (c *Client) OutputFormat() string {
	return c.cfg.OutputFormat
}

// SampleRateFromOutputFormat extracts the sample rate from a pcm_NNNN format
// name, defaulting to 24000 when the format is not raw PCM.
func SampleRateFromOutputFormat(format string) int {
	trimmed := strings.TrimSpace(strings.ToLower(format))
	if rate, ok := strings.CutPrefix(trimmed, "pcm_"); ok {
		if parsed, err := strconv.Atoi(rate); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultSampleRate
}

// Synthesis is one completed text-to-speech call.
type Synthesis struct {
	// Audio is raw little-endian 16-bit mono PCM.
	Audio []byte
	// Alignment is character-level timing, nil when the API omits it.
	Alignment *captions.Alignment
	// OutputFormat records the format the audio was requested in.
	OutputFormat string
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type synthesisResponse struct {
	AudioBase64         string              `json:"audio_base64"`
	Alignment           *captions.Alignment `json:"alignment"`
	NormalizedAlignment *captions.Alignment `json:"normalized_alignment"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("elevenlabs request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Synthesize converts text to speech, retrying transient failures.
func (c *Client) Synthesize(ctx context.Context, text string) (*Synthesis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("elevenlabs synthesize: text required")
	}
	if c.cfg.APIKey == "" {
		return nil, errors.New("elevenlabs synthesize: api key required")
	}
	if c.cfg.VoiceID == "" {
		return nil, errors.New("elevenlabs synthesize: voice id required")
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.synthesizeOnce(ctx, text)
		if err == nil {
			return result, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return nil, fmt.Errorf("elevenlabs synthesize: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) synthesizeOnce(ctx context.Context, text string) (*Synthesis, error) {
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps?output_format=%s",
		c.baseURL, url.PathEscape(c.cfg.VoiceID), url.QueryEscape(c.cfg.OutputFormat))

	encoded, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.cfg.ModelID})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded synthesisResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("elevenlabs request: decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs request: empty audio payload")
	}

	alignment := decoded.Alignment
	if alignment == nil || len(alignment.Characters) == 0 {
		alignment = decoded.NormalizedAlignment
	}
	if alignment != nil && len(alignment.Characters) == 0 {
		alignment = nil
	}
	return &Synthesis{Audio: audio, Alignment: alignment, OutputFormat: c.cfg.OutputFormat}, nil
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
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
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("elevenlabs retry: nil context")
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
