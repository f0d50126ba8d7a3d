// Package arxiv implements papersources.PaperSource for the arXiv Atom API.
//
// The upstream body is parsed into a loosely typed tree (see ParseTree) and
// each entry is normalized into a domain.PaperSummary by a Normalizer, which
// tolerates the single-or-repeated element shapes and optional fields that
// arXiv feeds exhibit.
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultCategory is the search_query used when no free-text query is given.
	DefaultCategory = "cat:cs.AI"

	// DefaultStart is the default pagination offset.
	DefaultStart = "0"

	// DefaultMaxResults is the default page size.
	DefaultMaxResults = "10"

	// DefaultQueryCacheTTL is the cache lifetime for free-text searches.
	DefaultQueryCacheTTL = 600 * time.Second

	// DefaultCategoryCacheTTL is the cache lifetime for the default category feed.
	DefaultCategoryCacheTTL = 3600 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// Search outcomes recorded in metrics.
const (
	outcomeOK               = "ok"
	outcomeUpstreamError    = "upstream_error"
	outcomeUnexpectedFormat = "unexpected_format"
	outcomeError            = "error"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL. Requests go to BaseURL + "/query".
	BaseURL string

	// DefaultCategory is the search_query used when the query is blank.
	DefaultCategory string

	// DefaultStart is used when SearchParams.Start is blank.
	DefaultStart string

	// DefaultMaxResults is used when SearchParams.MaxResults is blank.
	DefaultMaxResults string

	// QueryCacheTTL is the cache lifetime hint for free-text searches.
	QueryCacheTTL time.Duration

	// DefaultCacheTTL is the cache lifetime hint for the default category feed.
	DefaultCacheTTL time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = DefaultCategory
	}
	if c.DefaultStart == "" {
		c.DefaultStart = DefaultStart
	}
	if c.DefaultMaxResults == "" {
		c.DefaultMaxResults = DefaultMaxResults
	}
	if c.QueryCacheTTL == 0 {
		c.QueryCacheTTL = DefaultQueryCacheTTL
	}
	if c.DefaultCacheTTL == 0 {
		c.DefaultCacheTTL = DefaultCategoryCacheTTL
	}
}

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	fetcher    papersources.Fetcher
	normalizer *Normalizer
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client. metrics may be nil.
func New(cfg Config, fetcher papersources.Fetcher, normalizer *Normalizer, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		fetcher:    fetcher,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "arxiv").Logger(),
		metrics:    metrics,
	}
}

// Search fetches one page of the feed and normalizes its entries.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()
	logger := observability.WithSearchContext(observability.LoggerFromContext(ctx, c.logger), params.Query, sourceName)

	result, err := c.search(ctx, logger, params)
	duration := time.Since(startTime)
	c.metrics.RecordSearch(searchOutcome(err), duration.Seconds())
	if err != nil {
		return nil, err
	}

	result.SearchDuration = duration
	logger.Debug().
		Int("papers", len(result.Papers)).
		Bool("from_cache", result.FromCache).
		Dur("duration", duration).
		Msg("search completed")
	return result, nil
}

func (c *Client) search(ctx context.Context, logger zerolog.Logger, params papersources.SearchParams) (*papersources.SearchResult, error) {
	searchURL, maxAge, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	feed, fromCache, err := c.fetchFeed(ctx, logger, searchURL, maxAge)
	if err != nil {
		return nil, err
	}

	return &papersources.SearchResult{
		Papers:       c.normalizer.NormalizeEntries(feed["entry"]),
		TotalResults: feedCounter(feed, "totalResults"),
		StartIndex:   feedCounter(feed, "startIndex"),
		FromCache:    fromCache,
	}, nil
}

// GetByID retrieves a specific paper by its arXiv identifier.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.PaperSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id", "must not be empty")
	}
	logger := observability.LoggerFromContext(ctx, c.logger).With().Str("paper_id", id).Logger()

	lookupURL, err := c.endpoint(url.Values{
		"id_list":     {id},
		"max_results": {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("building lookup URL: %w", err)
	}

	feed, _, err := c.fetchFeed(ctx, logger, lookupURL, c.config.QueryCacheTTL)
	if err != nil {
		return nil, err
	}

	papers := c.normalizer.NormalizeEntries(feed["entry"])
	if len(papers) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return &papers[0], nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// fetchFeed retrieves and parses a feed document, returning its feed element.
func (c *Client) fetchFeed(ctx context.Context, logger zerolog.Logger, feedURL string, maxAge time.Duration) (map[string]any, bool, error) {
	resp, err := c.fetcher.Fetch(ctx, feedURL, maxAge)
	if err != nil {
		logger.Error().Err(err).Str("url", feedURL).Msg("upstream fetch failed")
		return nil, false, fmt.Errorf("fetching feed: %w", err)
	}

	if !resp.OK() {
		logger.Error().
			Int("status_code", resp.StatusCode).
			Str("url", feedURL).
			Msg("upstream returned non-success status")
		return nil, false, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(resp.Body), nil)
	}

	root, err := ParseTree(resp.Body)
	if err != nil {
		logger.Error().Err(err).Int("body_bytes", len(resp.Body)).Msg("upstream body is not valid xml")
		return nil, false, fmt.Errorf("parsing feed: %w", err)
	}

	feed, err := c.normalizer.FeedNode(root)
	if err != nil {
		return nil, false, err
	}
	return feed, resp.FromCache, nil
}

// buildSearchURL constructs the arXiv query URL and the cache lifetime hint for params.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, time.Duration, error) {
	query := url.Values{}

	var maxAge time.Duration
	if q := strings.TrimSpace(params.Query); q != "" {
		query.Set("search_query", q)
		query.Set("sortBy", "relevance")
		maxAge = c.config.QueryCacheTTL
	} else {
		query.Set("search_query", c.config.DefaultCategory)
		query.Set("sortBy", "submittedDate")
		maxAge = c.config.DefaultCacheTTL
	}
	query.Set("sortOrder", "descending")
	query.Set("start", firstNonBlank(params.Start, c.config.DefaultStart))
	query.Set("max_results", firstNonBlank(params.MaxResults, c.config.DefaultMaxResults))

	u, err := c.endpoint(query)
	if err != nil {
		return "", 0, err
	}
	return u, maxAge, nil
}

func (c *Client) endpoint(query url.Values) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// feedCounter reads an OpenSearch counter such as totalResults from the feed
// element, returning -1 when it is absent or not numeric.
func feedCounter(feed map[string]any, name string) int {
	v, ok := feed[name]
	if !ok {
		v, ok = feed["opensearch:"+name]
	}
	if !ok {
		return -1
	}
	if m, isMap := v.(map[string]any); isMap {
		v = m[textKey]
	}

	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return -1
}

func searchOutcome(err error) string {
	var apiErr *domain.ExternalAPIError
	switch {
	case err == nil:
		return outcomeOK
	case errors.As(err, &apiErr):
		return outcomeUpstreamError
	case errors.Is(err, domain.ErrUnexpectedFormat):
		return outcomeUnexpectedFormat
	default:
		return outcomeError
	}
}

func firstNonBlank(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
