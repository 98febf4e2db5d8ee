package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/nutriplan/backend/internal/domain"
)

const maxRetries = 3

// Client fetches unit-cost snapshots from the market-data collaborator.
// The engine itself performs no I/O; snapshots are fetched up front and
// applied to the catalogue before planning starts.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new price feed client
func NewClient(apiKey, baseURL string) *Client {
	// The feed is polled rarely; one request per second with a small burst
	// is more than enough headroom
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// SetDebug toggles request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// FetchSnapshot retrieves the price snapshot for the given month, retrying
// transient failures with exponential backoff
func (c *Client) FetchSnapshot(ctx context.Context, month int) (*domain.PriceSnapshot, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("month", fmt.Sprintf("%d", month))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/v1/prices?%s", c.baseURL, params.Encode())

	if c.debug {
		log.Printf("[PRICES] GET %s/v1/prices month=%d", c.baseURL, month)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		snapshot, retryable, err := c.doFetch(ctx, reqURL)
		if err == nil {
			return snapshot, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetries {
			break
		}

		backoff := exponentialBackoff(attempt)
		if c.debug {
			log.Printf("[PRICES] attempt %d failed (%v), retrying in %s", attempt, err, backoff)
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// doFetch executes one request. The second return value reports whether the
// failure is worth retrying.
func (c *Client) doFetch(ctx context.Context, reqURL string) (*domain.PriceSnapshot, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "NutriPlan/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrPriceFeedFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrPriceFeedFailure, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("%w: status %d", domain.ErrPriceFeedFailure, resp.StatusCode)
	}

	var snapshot domain.PriceSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, false, fmt.Errorf("%w: decode response: %v", domain.ErrPriceFeedFailure, err)
	}

	if c.debug {
		log.Printf("[PRICES] snapshot month=%d items=%d", snapshot.Month, len(snapshot.Prices))
	}

	return &snapshot, false, nil
}

// exponentialBackoff returns the wait before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return 500 * time.Millisecond << (attempt - 1)
}
