// Package papersources provides the upstream transport for paper feeds: a
// rate-limited retrying HTTP client, a response cache driven by cache lifetime
// hints, and the PaperSource abstraction implemented by feed clients.
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// SearchParams defines the parameters of one feed search.
// Start and MaxResults are forwarded to the upstream API verbatim.
type SearchParams struct {
	// Query is the free-text search query. Blank means "use the default category feed".
	Query string

	// Start is the pagination offset.
	Start string

	// MaxResults is the page size.
	MaxResults string
}

// SearchResult contains the normalized results of one feed search.
type SearchResult struct {
	// Papers holds the normalized summaries in feed order. Never nil.
	Papers []domain.PaperSummary

	// TotalResults is the upstream total match count, or -1 when the feed omitted it.
	TotalResults int

	// StartIndex is the upstream start index, or -1 when the feed omitted it.
	StartIndex int

	// FromCache is true when the upstream response came from the response cache.
	FromCache bool

	// SearchDuration is the time taken to fetch, parse and normalize.
	SearchDuration time.Duration
}

// PaperSource is implemented by feed clients.
type PaperSource interface {
	// Search fetches and normalizes one page of the feed.
	// A non-2xx upstream status is reported as *domain.ExternalAPIError and a
	// feed without the expected root shape as domain.ErrUnexpectedFormat.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID fetches a single paper by its public identifier.
	// Returns an error wrapping domain.ErrNotFound when the feed has no usable entry.
	GetByID(ctx context.Context, id string) (*domain.PaperSummary, error)

	// Name returns a human-readable name for logging and error messages.
	Name() string
}
