package localcalling

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/nanp-dialplan/internal/domain/errors"
	"github.com/davidleathers/nanp-dialplan/internal/infrastructure/telemetry"
)

const (
	serviceName     = "localcallingguide"
	maxResponseSize = 16 << 20
)

// Prefix is one NPA-NXX as listed by the data source
type Prefix struct {
	NPA string `json:"npa" xml:"npa"`
	NXX string `json:"nxx" xml:"nxx"`
}

// Lookup answers the two questions a dial plan needs from the numbering data source
type Lookup interface {
	// LocalPrefixes lists the NPA-NXXes in the local calling area of npa-nxx
	LocalPrefixes(ctx context.Context, npa, nxx string) ([]Prefix, error)
	// Prefixes lists every assigned NXX of npa
	Prefixes(ctx context.Context, npa string) ([]Prefix, error)
}

// ClientConfig contains configuration for the localcallingguide.com client
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryBackoff      time.Duration
	UserAgent         string
	// HTTPClient replaces the default transport, mainly for tests
	HTTPClient *http.Client
}

// Client fetches prefix data from localcallingguide.com's XML endpoints
type Client struct {
	config      ClientConfig
	client      *http.Client
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a client, filling unset options with conservative defaults
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.localcallingguide.com"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 2
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 500 * time.Millisecond
	}
	if config.UserAgent == "" {
		config.UserAgent = "nanp-dialplan"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		config:      config,
		client:      httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:      logger,
	}
}

type localPrefixResponse struct {
	XMLName  xml.Name `xml:"root"`
	Prefixes []Prefix `xml:"lca-data>prefix"`
}

type prefixResponse struct {
	XMLName  xml.Name `xml:"root"`
	Prefixes []Prefix `xml:"prefixdata"`
}

// LocalPrefixes calls xmllocalprefix.php for one exchange
func (c *Client) LocalPrefixes(ctx context.Context, npa, nxx string) ([]Prefix, error) {
	q := url.Values{"npa": {npa}, "nxx": {nxx}}
	var resp localPrefixResponse
	if err := c.getXML(ctx, "/xmllocalprefix.php", q, &resp); err != nil {
		return nil, err
	}
	return trimPrefixes(resp.Prefixes), nil
}

// Prefixes calls xmlprefix.php for one NPA
func (c *Client) Prefixes(ctx context.Context, npa string) ([]Prefix, error) {
	q := url.Values{"npa": {npa}}
	var resp prefixResponse
	if err := c.getXML(ctx, "/xmlprefix.php", q, &resp); err != nil {
		return nil, err
	}
	return trimPrefixes(resp.Prefixes), nil
}

func trimPrefixes(in []Prefix) []Prefix {
	out := make([]Prefix, 0, len(in))
	for _, p := range in {
		out = append(out, Prefix{NPA: strings.TrimSpace(p.NPA), NXX: strings.TrimSpace(p.NXX)})
	}
	return out
}

// getXML performs a rate-limited GET with bounded retries on transport errors, 429 and 5xx.
func (c *Client) getXML(ctx context.Context, path string, query url.Values, dest interface{}) error {
	endpoint := c.config.BaseURL + path + "?" + query.Encode()

	ctx, span := telemetry.StartHTTPSpan(ctx, http.MethodGet, endpoint, attribute.String("peer.service", serviceName))
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryBackoff << (attempt - 1)
			c.logger.Warn("retrying data source request",
				zap.String("url", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.do(ctx, endpoint)
		if err == nil {
			span.SetAttributes(attribute.Int("http.attempts", attempt+1))
			if err := xml.Unmarshal(body, dest); err != nil {
				appErr := errors.NewExternalError(serviceName, fmt.Sprintf("decoding %s: %v", path, err))
				appErr.Retryable = false
				telemetry.RecordError(span, appErr)
				return appErr
			}
			return nil
		}

		lastErr = err
		if !errors.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	telemetry.RecordError(span, lastErr)
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewInternalError("building data source request").WithCause(err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewExternalError(serviceName, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewExternalError(serviceName, "reading response").WithCause(err)
	}

	c.logger.Debug("data source response",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	return body, c.handleHTTPError(resp)
}

func (c *Client) handleHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	appErr := errors.NewExternalError(serviceName, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	appErr.Retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return appErr.WithDetails(map[string]interface{}{
		"service": serviceName,
		"status":  resp.StatusCode,
	})
}
