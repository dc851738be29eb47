package clob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-lp/pkg/cache"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// booksRatePerSec bounds book read throughput across all callers.
	booksRatePerSec = 20

	// bookCacheTTL keeps a fetched book briefly reusable: the selection
	// preflight and the first worker iteration of a cycle read the same
	// tokens back to back.
	bookCacheTTL = 2 * time.Second
)

// BookClient reads order books and token metadata from the CLOB REST API.
type BookClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.Cache
	logger     *zap.Logger
}

// BookClientConfig holds book client configuration.
type BookClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	Cache          cache.Cache // optional
	Logger         *zap.Logger
}

// NewBookClient creates a read-only CLOB client.
func NewBookClient(cfg *BookClientConfig) *BookClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &BookClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(booksRatePerSec, 10),
		cache:      cfg.Cache,
		logger:     cfg.Logger,
	}
}

// FetchBook retrieves the order book for one outcome token, parsed and
// sorted best-first. Recently fetched books are served from cache.
func (c *BookClient) FetchBook(ctx context.Context, tokenID string) (*types.ParsedBook, error) {
	cacheKey := "book:" + tokenID
	if c.cache != nil {
		if v, found := c.cache.Get(cacheKey); found {
			if book, ok := v.(*types.ParsedBook); ok {
				return book, nil
			}
		}
	}

	start := time.Now()
	defer func() {
		BookFetchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	requestURL := fmt.Sprintf("%s/book?token_id=%s", c.baseURL, url.QueryEscape(tokenID))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		BookFetchErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch book for token %s: %w", tokenID, err)
	}

	var book types.Book
	if err := json.Unmarshal(body, &book); err != nil {
		BookFetchErrorsTotal.Inc()
		return nil, fmt.Errorf("unmarshal book for token %s: %w", tokenID, err)
	}

	parsed := book.Parse()
	if parsed.TokenID == "" {
		parsed.TokenID = tokenID
	}

	BooksFetchedTotal.Inc()

	if c.cache != nil {
		c.cache.Set(cacheKey, parsed, bookCacheTTL)
	}

	return parsed, nil
}

// FetchTickSize reads the minimum price increment for a token. Markets
// usually carry a tick hint in the catalog record; this is the fallback.
func (c *BookClient) FetchTickSize(ctx context.Context, tokenID string) (float64, error) {
	requestURL := fmt.Sprintf("%s/tick-size?token_id=%s", c.baseURL, url.QueryEscape(tokenID))

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return 0, fmt.Errorf("fetch tick size for token %s: %w", tokenID, err)
	}

	var data struct {
		MinimumTickSize float64 `json:"minimum_tick_size"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("unmarshal tick size: %w", err)
	}

	return data.MinimumTickSize, nil
}

func (c *BookClient) get(ctx context.Context, requestURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
