package ratesvc

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"titlequote/internal/common/auth"
	"titlequote/internal/common/errors"
	commonhttp "titlequote/internal/common/http"
	"titlequote/internal/common/logger"
	"titlequote/internal/common/metrics"
)

// Caller is the outbound surface the orchestrator depends on. Tests swap in
// a scripted implementation to count upstream calls.
type Caller interface {
	Products(ctx context.Context, stateCode string) (*ProductCatalog, error)
	Calculate(ctx context.Context, req *RateRequest) ([]byte, error)
}

// Client talks to the rate-calculation service over HTTP with XML bodies and
// a bearer token from the injected provider.
type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
	tokens     auth.TokenProvider
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens auth.TokenProvider, log logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: commonhttp.NewClient(timeout),
		tokens:     tokens,
		logger:     log.WithFields(map[string]interface{}{"component": "ratesvc"}),
	}
}

// Products fetches the product catalog for a state.
func (c *Client) Products(ctx context.Context, stateCode string) (*ProductCatalog, error) {
	url := fmt.Sprintf("%s/products?state=%s", c.baseURL, stateCode)
	raw, err := c.do(ctx, "products", "GET", url, nil)
	if err != nil {
		return nil, err
	}
	return ParseProductCatalog(raw)
}

// Calculate posts a rate request (discovery or answer round) and returns the
// raw response body for the parser.
func (c *Client) Calculate(ctx context.Context, req *RateRequest) ([]byte, error) {
	body, err := xml.Marshal(req)
	if err != nil {
		return nil, errors.NewUpstreamFailureError(fmt.Errorf("marshal rate request: %w", err))
	}
	return c.do(ctx, "calculate", "POST", c.baseURL+"/rates", body)
}

func (c *Client) do(ctx context.Context, call, method, url string, body []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(call, "auth_error").Inc()
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.NewUpstreamFailureError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(call, "transport_error").Inc()
		if ctx.Err() != nil {
			// Preserve the context error so callers can distinguish a
			// timeout from a hard upstream failure.
			return nil, ctx.Err()
		}
		return nil, errors.NewUpstreamFailureError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(call, "read_error").Inc()
		return nil, errors.NewUpstreamFailureError(err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamCalls.WithLabelValues(call, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		c.logger.Error("rate service returned non-200", map[string]interface{}{
			"call":   call,
			"status": resp.StatusCode,
			"body":   string(payload),
		})
		return nil, errors.NewUpstreamFailureError(
			fmt.Errorf("rate service returned status %d", resp.StatusCode))
	}

	metrics.UpstreamCalls.WithLabelValues(call, "ok").Inc()
	return payload, nil
}
