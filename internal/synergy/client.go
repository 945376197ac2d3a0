package synergy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.sportradar.com/synergy/basketball"

const apiKeyHeader = "x-api-key"

// DefaultMaxPayloadBytes caps a response body. A full season's schedule is a
// few megabytes.
const DefaultMaxPayloadBytes = 64 << 20

var (
	ErrMissingCredential = errors.New("synergy api key is required")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrRequestFailed     = errors.New("request failed")
)

// Outcome classifies the result of a remote call.
type Outcome string

const (
	Success          Outcome = "success"
	TransientNetwork Outcome = "transient_network"
	RateLimited      Outcome = "rate_limited"
	ServerError      Outcome = "server_error"
	Unauthorized     Outcome = "unauthorized"
	Forbidden        Outcome = "forbidden"
	NotFound         Outcome = "not_found"
	ClientError      Outcome = "client_error"
	MalformedPayload Outcome = "malformed_payload"
	Canceled         Outcome = "canceled"
)

// Terminal reports whether an outcome ends the retry loop.
func (o Outcome) Terminal() bool {
	switch o {
	case Success, Unauthorized, Forbidden, NotFound, ClientError, Canceled:
		return true
	}
	return false
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config configures a Client. Zero durations fall back to defaults, except
// RequestInterval where zero disables pacing.
type Config struct {
	APIKey           string
	BaseURL          string
	MaxRetries       int
	BackoffBase      time.Duration
	ServerErrorDelay time.Duration
	RequestInterval  time.Duration
	RequestTimeout   time.Duration
	MaxPayloadBytes  int64 // Default: DefaultMaxPayloadBytes
	HTTPClient       *http.Client
	Sleeper          Sleeper
}

// Response is the result of one logical call.
type Response struct {
	Payload  any // Decoded JSON; nil on failure
	Status   int // Last HTTP status; 0 if no response was received
	Err      error
	Outcome  Outcome
	Attempts int
}

// OK reports whether the call produced a payload.
func (r *Response) OK() bool {
	return r.Outcome == Success
}

// Client issues GET requests against the API.
type Client struct {
	apiKey           string
	baseURL          string
	maxRetries       int
	backoffBase      time.Duration
	serverErrorDelay time.Duration
	maxPayload       int64
	http             *http.Client
	limiter          *rate.Limiter
	sleep            Sleeper

	mu         sync.Mutex
	lastStatus int
	lastErr    error
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2500 * time.Millisecond
	}
	if cfg.ServerErrorDelay <= 0 {
		cfg.ServerErrorDelay = 2 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = ContextSleep
	}

	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}

	return &Client{
		apiKey:           cfg.APIKey,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:       cfg.MaxRetries,
		backoffBase:      cfg.BackoffBase,
		serverErrorDelay: cfg.ServerErrorDelay,
		maxPayload:       cfg.MaxPayloadBytes,
		http:             cfg.HTTPClient,
		limiter:          rate.NewLimiter(limit, 1),
		sleep:            cfg.Sleeper,
	}, nil
}

// LastStatus returns the HTTP status of the most recent call (0 if none).
func (c *Client) LastStatus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// LastError returns the error of the most recent call, nil on success.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Get fetches endpoint (relative to the base URL) with query params.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) *Response {
	resp := c.get(ctx, endpoint, params)

	c.mu.Lock()
	c.lastStatus = resp.Status
	c.lastErr = resp.Err
	c.mu.Unlock()

	return resp
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) *Response {
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	logger := log.WithField("url", target)

	if err := c.limiter.Wait(ctx); err != nil {
		return &Response{Err: err, Outcome: Canceled}
	}

	resp := &Response{}
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp.Attempts = attempt + 1
		logger.WithField("attempt", resp.Attempts).Debug("synergy request")

		status, payload, err := c.do(ctx, target)
		resp.Status = status
		resp.Err = err
		resp.Outcome = classify(status, err)
		if err != nil && ctx.Err() != nil {
			resp.Err = ctx.Err()
			resp.Outcome = Canceled
		}
		logger.WithFields(log.Fields{"status": status, "outcome": resp.Outcome}).Debug("synergy response")

		if resp.Outcome == Success {
			resp.Payload = payload
			resp.Err = nil
			return resp
		}
		if resp.Err == nil {
			resp.Err = fmt.Errorf("%w: %s returned %d", ErrRequestFailed, endpoint, status)
		}
		if resp.Outcome.Terminal() {
			logger.WithError(resp.Err).WithField("status", status).Warn("synergy request failed")
			return resp
		}

		if attempt == c.maxRetries-1 {
			break
		}
		delay := c.delay(resp.Outcome, attempt)
		logger.WithFields(log.Fields{
			"status":  status,
			"outcome": resp.Outcome,
			"delay":   delay,
		}).Warn("synergy backoff")
		if err := c.sleep(ctx, delay); err != nil {
			resp.Err = err
			resp.Outcome = Canceled
			return resp
		}
	}

	resp.Err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, resp.Attempts, resp.Err)
	logger.WithError(resp.Err).Warn("synergy request gave up")
	return resp
}

func (c *Client) delay(o Outcome, attempt int) time.Duration {
	if o == RateLimited {
		return time.Duration(attempt+1) * c.backoffBase
	}
	return c.serverErrorDelay
}

// do performs a single attempt. A decode failure on 2xx is reported as
// errMalformed alongside the 2xx status.
func (c *Client) do(ctx context.Context, target string) (int, any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxPayload+1))
	if err != nil {
		return res.StatusCode, nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res.StatusCode, nil, nil
	}
	if int64(len(body)) > c.maxPayload {
		return res.StatusCode, nil, fmt.Errorf("%w: body exceeds %d bytes", errMalformed, c.maxPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return res.StatusCode, nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return res.StatusCode, payload, nil
}

var errMalformed = errors.New("malformed payload")

func classify(status int, err error) Outcome {
	switch {
	case errors.Is(err, errMalformed):
		return MalformedPayload
	case status == 0:
		return TransientNetwork
	case status >= 200 && status < 300:
		if err != nil {
			return TransientNetwork
		}
		return Success
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status == http.StatusUnauthorized:
		return Unauthorized
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusNotFound:
		return NotFound
	case status >= 500:
		return ServerError
	default:
		return ClientError
	}
}
