package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/observability"
)

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 10 << 20

// ErrResponseTooLarge is returned when an upstream body exceeds the read limit.
var ErrResponseTooLarge = errors.New("upstream response too large")

// Response is the outcome of an upstream fetch.
type Response struct {
	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Body is the response body text.
	Body []byte

	// FromCache is true when the response was served from the response cache.
	FromCache bool
}

// OK reports whether the upstream status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher retrieves a URL, applying a cache lifetime hint.
// A maxAge of zero disables caching for the call.
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxAge time.Duration) (*Response, error)
}

// CachingFetcher is a Fetcher backed by an HTTPClient and an optional ResponseCache.
// Only 2xx responses are cached.
type CachingFetcher struct {
	client  *HTTPClient
	cache   *ResponseCache
	logger  zerolog.Logger
	metrics *observability.Metrics
	maxBody int64
}

var _ Fetcher = (*CachingFetcher)(nil)

// NewCachingFetcher creates a CachingFetcher. cache and metrics may be nil.
func NewCachingFetcher(client *HTTPClient, cache *ResponseCache, logger zerolog.Logger, metrics *observability.Metrics) *CachingFetcher {
	return &CachingFetcher{
		client:  client,
		cache:   cache,
		logger:  logger.With().Str("component", "fetcher").Logger(),
		metrics: metrics,
		maxBody: maxBodyBytes,
	}
}

// Fetch issues a GET for url, serving from the cache when a live entry exists.
func (f *CachingFetcher) Fetch(ctx context.Context, url string, maxAge time.Duration) (*Response, error) {
	useCache := f.cache != nil && maxAge > 0

	if useCache {
		body, hit := f.cache.Get(url)
		f.metrics.RecordCacheLookup(hit)
		if hit {
			f.logger.Debug().Str("url", url).Msg("serving upstream response from cache")
			return &Response{StatusCode: http.StatusOK, Body: body, FromCache: true}, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		f.logger.Warn().Str("url", url).Int("status_code", resp.StatusCode).Int64("limit_bytes", f.maxBody).
			Msg("upstream response exceeds size limit")
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, f.maxBody)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: body}
	if useCache && out.OK() {
		f.cache.Put(url, body, maxAge)
	}
	return out, nil
}
