package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChristopherJHart/disnake/config"
	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/metric"
	"github.com/ChristopherJHart/disnake/pkg/retry"
)

// Client issues request/response operations against the remote HTTP API.
// All operations are context-aware: a cancelled caller gives up its in-flight
// request without corrupting rate-limit bucket state or affecting other
// concurrent operations.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limits     *rateLimiter
	retryCfg   retry.Config
	logger     *slog.Logger
	metrics    *Metrics
}

// Metrics holds Prometheus metrics for the HTTP layer
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimitWaits  prometheus.Counter
}

// newMetrics creates and registers HTTP metrics
func newMetrics(registry metric.Registrar) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "rest",
			Name:      "requests_total",
			Help:      "Total HTTP requests by bucket and status code",
		}, []string{"bucket", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "rest",
			Name:      "request_duration_seconds",
			Help:      "HTTP request round-trip duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"bucket"}),

		rateLimitWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "rest",
			Name:      "rate_limit_waits_total",
			Help:      "Total requests delayed or retried due to rate limiting",
		}),
	}

	_ = registry.Register("rest", "requests_total", metrics.requestsTotal)
	_ = registry.Register("rest", "request_duration", metrics.requestDuration)
	_ = registry.Register("rest", "rate_limit_waits", metrics.rateLimitWaits)

	return metrics
}

// NewClient creates a new HTTP API client
func NewClient(cfg config.Config, logger *slog.Logger, registry metric.Registrar) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.APIBaseURL,
		token:      cfg.Token,
		limits:     newRateLimiter(),
		retryCfg: retry.Config{
			MaxAttempts:  cfg.MaxRetries + 1,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
		},
		logger:  logger.With("component", "rest"),
		metrics: newMetrics(registry),
	}
}

// apiError is the structured error body returned by the remote service
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// do runs one API call with rate limiting, transparent retry for transient
// failures, and status-to-taxonomy mapping. bucketKey groups routes sharing a
// rate-limit window; body and out may be nil. reason, when set, is recorded
// in the remote audit log.
func (c *Client) do(ctx context.Context, method, path, bucketKey string, body, out any, reason string) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.WrapInvalid(err, "rest", "do", "marshal request body")
		}
	}

	requestID := uuid.NewString()
	b := c.limits.bucket(bucketKey)

	return retry.Do(ctx, c.retryCfg, func() error {
		if err := b.acquire(ctx); err != nil {
			return retry.NonRetryable(err)
		}
		defer b.release()

		start := time.Now()
		status, respBody, header, err := c.roundTrip(ctx, method, path, payload, reason)
		if err != nil {
			// Transport-level failure; context errors are not worth retrying
			if ctx.Err() != nil {
				return retry.NonRetryable(ctx.Err())
			}
			return errors.WrapTransient(err, "rest", "do", "send request")
		}

		b.update(header)
		c.observe(bucketKey, status, time.Since(start))

		if status >= 200 && status < 300 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return retry.NonRetryable(
					errors.WrapInvalid(err, "rest", "do", "decode response body"))
			}
			return nil
		}

		err = c.statusError(status, respBody)
		c.logger.Warn("request failed",
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", status,
			"error", err,
		)

		switch status {
		case http.StatusTooManyRequests:
			if c.metrics != nil {
				c.metrics.rateLimitWaits.Inc()
			}
			return retry.Pause(retryAfter(header), err)
		default:
			if status >= 500 {
				return err // transient, retried with backoff
			}
			return retry.NonRetryable(err)
		}
	})
}

// roundTrip builds and executes a single HTTP request
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, reason string) (int, []byte, http.Header, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, nil, err
	}

	req.Header.Set("Authorization", "Bot "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", reason)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, respBody, resp.Header, nil
}

// statusError maps an HTTP status outcome onto the error taxonomy, 1:1
func (c *Client) statusError(status int, body []byte) error {
	var detail apiError
	_ = json.Unmarshal(body, &detail)

	describe := func(base error) error {
		if detail.Message == "" {
			return fmt.Errorf("%w (status %d)", base, status)
		}
		return fmt.Errorf("%w (status %d): %s", base, status, detail.Message)
	}

	switch {
	case status == http.StatusNotFound:
		return describe(errors.ErrNotFound)
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return describe(errors.ErrForbidden)
	case status == http.StatusTooManyRequests:
		return describe(errors.ErrRateLimited)
	case status >= 500:
		return describe(errors.ErrServerError)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unexpected status %d: %s", status, detail.Message),
			"rest", "statusError", "map status")
	}
}

func (c *Client) observe(bucketKey string, status int, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.requestsTotal.WithLabelValues(bucketKey, fmt.Sprintf("%d", status)).Inc()
	c.metrics.requestDuration.WithLabelValues(bucketKey).Observe(elapsed.Seconds())
}
