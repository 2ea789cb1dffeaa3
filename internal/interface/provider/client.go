// Package provider talks to the billable vehicle data APIs and maps their
// payloads onto the canonical entity types.
package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/resilience"
)

const maxBodyBytes = 2 << 20

// ClientConfig configures a provider HTTP client
type ClientConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	// APIKeyHeader sends the key as a header instead of the apikey query
	// parameter
	APIKeyHeader  string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
	Retry         resilience.RetryConfig
	Breaker       resilience.CircuitBreakerConfig
	TestMode      bool
	HTTPClient    *http.Client
}

// Client is a rate-limited JSON client with retry and a circuit breaker
// per service
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// NewClient creates a new provider client
func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     log.With("provider", cfg.Name),
		breakers:   make(map[string]*resilience.CircuitBreaker),
	}
}

// Name returns the provider name recorded on vehicle records
func (c *Client) Name() string {
	return c.cfg.Name
}

// TestMode reports whether the client runs against test credentials
func (c *Client) TestMode() bool {
	return c.cfg.TestMode
}

func (c *Client) breaker(service string) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[service]
	if !ok {
		cfg := c.cfg.Breaker
		log := c.logger
		cfg.OnStateChange = func(from, to resilience.CircuitState) {
			log.Warn("Circuit breaker state changed",
				"service", service,
				"from", from.String(),
				"to", to.String())
		}
		cb = resilience.NewCircuitBreaker(cfg)
		c.breakers[service] = cb
	}
	return cb
}

// BreakerState returns the circuit state for a service
func (c *Client) BreakerState(service string) resilience.CircuitState {
	return c.breaker(service).State()
}

// GetJSON fetches path for service and decodes the body into out
func (c *Client) GetJSON(ctx context.Context, service, path string, query url.Values, out interface{}) error {
	retry := c.cfg.Retry
	retry.OnRetry = func(attempt int, err error) {
		c.logger.Warn("Retrying provider call",
			"service", service,
			"attempt", attempt,
			"error", err)
	}

	_, err := resilience.Execute(ctx, c.breaker(service), func(ctx context.Context) (struct{}, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.do(ctx, service, path, query, out)
		})
	})
	if err != nil {
		return classify(service, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, service, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return classify(service, eris.Wrap(err, "rate limiter"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return &ProviderError{Service: service, Kind: KindTransport, Err: eris.Wrap(err, "build request")}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKeyHeader != "" && c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classify(service, eris.Wrap(err, "read body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(service, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Service: service, Kind: KindMalformed, Err: eris.Wrap(err, "decode body")}
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.cfg.APIKeyHeader == "" && c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
