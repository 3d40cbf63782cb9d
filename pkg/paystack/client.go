package paystack

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
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/splitpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
)

const (
	defaultBaseURL              = "https://api.paystack.co"
	defaultTimeout              = 15 * time.Second
	defaultMaxRetries           = 3
	defaultRetryBase            = 200 * time.Millisecond
	defaultRetryCap             = 2 * time.Second
	retryJitterPercent          = 10
	responseBodyReadLimit int64 = 1 << 20
	errorBodyLogLimit           = 512
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
)

// Recorder observes gateway round trips. pkg/metrics.GatewayMetrics satisfies it.
type Recorder interface {
	ObserveRequest(operation string, status int, duration time.Duration)
}

// Client wraps the Paystack subaccount and settlement APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *logger.Logger
	recorder   Recorder
	maxRetries uint64
	retryBase  time.Duration
	retryCap   time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Paystack API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithLogger enables request/response phase logging.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithRetry configures the transient-failure retry policy. maxRetries of zero disables retries.
func WithRetry(maxRetries uint64, base, cap time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if base > 0 {
			c.retryBase = base
		}
		if cap > 0 {
			c.retryCap = cap
		}
	}
}

// NewClient builds the Paystack client given a secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
		retryCap:   defaultRetryCap,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// NewClientFromConfig builds the client from the service configuration.
func NewClientFromConfig(cfg config.PaystackConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithRetry(cfg.MaxRetries, cfg.RetryBase, cfg.RetryCap),
		WithLogger(logg),
	}
	return NewClient(cfg.SecretKey, append(base, opts...)...)
}

// SecretKey returns the key used both for API auth and webhook signatures.
func (c *Client) SecretKey() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *Meta           `json:"meta"`
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
}

func (c *Client) do(ctx context.Context, req call, out any) (*Meta, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}

	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, pkgerrors.Wrapf(pkgerrors.CodeInternal, err, "marshal %s request", req.operation)
		}
		payload = encoded
	}

	c.log(ctx, "request", req.operation, map[string]any{
		"method": req.method,
		"path":   req.path,
	})

	var meta *Meta
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		env, status, err := c.roundTrip(ctx, req, payload)
		if err != nil {
			return err
		}
		if !env.Status {
			return gatewayError(req.operation, status, env.Message)
		}
		if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return pkgerrors.Wrapf(pkgerrors.CodeGateway, err, "decode %s response", req.operation)
			}
		}
		meta = env.Meta
		return nil
	})
	if err != nil {
		c.log(ctx, "error", req.operation, map[string]any{"error": err.Error(), "attempts": attempt})
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrapf(pkgerrors.CodeGateway, err, "paystack %s failed", req.operation).
			WithDetails(map[string]any{"operation": req.operation, "attempts": attempt})
	}

	c.log(ctx, "response", req.operation, map[string]any{"attempts": attempt})
	return meta, nil
}

func (c *Client) roundTrip(ctx context.Context, req call, payload []byte) (*envelope, int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.buildURL(req.path, req.query), body)
	if err != nil {
		return nil, 0, pkgerrors.Wrapf(pkgerrors.CodeInternal, err, "build %s request", req.operation)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req.operation, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, retry.RetryableError(fmt.Errorf("execute %s request: %w", req.operation, err))
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(req.operation, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, resp.StatusCode, retry.RetryableError(fmt.Errorf("read %s response: %w", req.operation, err))
	}

	if isRetryableStatus(resp.StatusCode) {
		return nil, resp.StatusCode, retry.RetryableError(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, gatewayError(req.operation, resp.StatusCode, fmt.Sprintf("unexpected response (status %d): %s", resp.StatusCode, truncate(raw)))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		env.Status = false
		if env.Message == "" {
			env.Message = http.StatusText(resp.StatusCode)
		}
	}
	return &env, resp.StatusCode, nil
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.retryBase)
	b = retry.WithJitterPercent(retryJitterPercent, b)
	b = retry.WithCappedDuration(c.retryCap, b)
	return retry.WithMaxRetries(c.maxRetries, b)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func gatewayError(operation string, status int, message string) *pkgerrors.Error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = fmt.Sprintf("paystack %s failed", operation)
	}
	details := map[string]any{"operation": operation}
	if status > 0 {
		details["status"] = status
	}
	return pkgerrors.New(pkgerrors.CodeGateway, msg).WithDetails(details)
}

func (c *Client) buildURL(path string, query url.Values) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	u := fmt.Sprintf("%s/%s", trimmed, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) observe(operation string, status int, duration time.Duration) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveRequest(operation, status, duration)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"gateway":   "paystack",
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"account_number", "secret", "authorization", "token"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > errorBodyLogLimit {
		return s[:errorBodyLogLimit]
	}
	return s
}
