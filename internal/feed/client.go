package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// PageSize is the number of markets requested per Gamma API page.
	PageSize = 100

	// gammaRatePerSec bounds catalog request throughput. The Gamma API
	// rate-limits aggressively during full catalog walks.
	gammaRatePerSec = 10
)

// RetryPolicy bounds transient-failure retries for one page fetch.
// Attempts are counted per page, not across the whole pagination.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Client pages through the Gamma market catalog and normalizes records.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     *zap.Logger
}

// Config holds catalog client configuration.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Retry          RetryPolicy
	Logger         *zap.Logger
}

// NewClient creates a Gamma catalog client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(gammaRatePerSec, 5),
		retry:      cfg.Retry,
		logger:     cfg.Logger,
	}
}

// FetchMarkets walks the paginated catalog from offset zero and returns
// normalized records, stopping at the first empty page or once max records
// have been collected (0 means no ceiling). Each call restarts the cursor.
//
// A page that keeps failing after the retry budget fails the whole call;
// a single record that fails extraction is skipped and counted.
func (c *Client) FetchMarkets(ctx context.Context, closed bool, max int) ([]types.MarketRecord, error) {
	start := time.Now()
	defer func() {
		FetchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var markets []types.MarketRecord
	offset := 0

	for {
		page, err := c.fetchPage(ctx, closed, offset)
		if err != nil {
			FetchErrorsTotal.Inc()
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		if len(page) == 0 {
			break
		}

		for _, raw := range page {
			var record types.MarketRecord
			if err := json.Unmarshal(raw, &record); err != nil {
				RecordsSkippedTotal.Inc()
				c.logger.Warn("market-extraction-failed",
					zap.Int("offset", offset),
					zap.Error(err))
				continue
			}
			markets = append(markets, record)
		}

		MarketsFetchedTotal.Add(float64(len(page)))
		offset += len(page)

		if max > 0 && len(markets) >= max {
			markets = markets[:max]
			break
		}
	}

	c.logger.Debug("catalog-walk-complete",
		zap.Int("markets", len(markets)),
		zap.Int("final-offset", offset),
		zap.Duration("duration", time.Since(start)))

	return markets, nil
}

// fetchPage retrieves one catalog page, retrying transient failures with
// exponential backoff capped at BackoffMax.
func (c *Client) fetchPage(ctx context.Context, closed bool, offset int) ([]json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			RetriesTotal.Inc()
			backoff := c.retry.BackoffBase << attempt
			if backoff > c.retry.BackoffMax {
				backoff = c.retry.BackoffMax
			}
			c.logger.Warn("page-fetch-retrying",
				zap.Int("offset", offset),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		page, err := c.requestPage(ctx, closed, offset)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after %d retries: %w", c.retry.MaxRetries, lastErr)
}

func (c *Client) requestPage(ctx context.Context, closed bool, offset int) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(PageSize))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("closed", strconv.FormatBool(closed))

	requestURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "polymarket-lp/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	// The Gamma API returns a bare JSON array. Records are decoded
	// individually so one malformed object cannot abort the page.
	var page []json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("unmarshal page: %w", err)
	}

	return page, nil
}
