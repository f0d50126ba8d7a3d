package arxiv

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
)

const (
	// DefaultTitlePlaceholder replaces a missing or non-text title.
	DefaultTitlePlaceholder = "Title not available"

	// DefaultSummaryPlaceholder replaces a missing or non-text summary.
	DefaultSummaryPlaceholder = "Summary not available"

	missingID = "<missing>"
)

var (
	// idPattern captures the identifier after /abs/ up to the first "v".
	// Identifiers that contain a "v" outside the version suffix are truncated.
	idPattern = regexp.MustCompile(`/abs/([^v]+)`)

	// multiSpace matches runs of Unicode whitespace, including NBSP, the
	// ideographic space, vertical tab and the byte order mark.
	multiSpace = regexp.MustCompile(`[\s\v\x{85}\p{Z}\x{FEFF}]{2,}`)
)

// Placeholders are substituted for missing titles and summaries.
type Placeholders struct {
	Title   string
	Summary string
}

// Normalizer turns parsed feed trees into PaperSummary records.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	logger       zerolog.Logger
	metrics      *observability.Metrics
	placeholders Placeholders
}

// NewNormalizer creates a Normalizer. Empty placeholders fall back to the
// defaults and metrics may be nil.
func NewNormalizer(logger zerolog.Logger, metrics *observability.Metrics, placeholders Placeholders) *Normalizer {
	if placeholders.Title == "" {
		placeholders.Title = DefaultTitlePlaceholder
	}
	if placeholders.Summary == "" {
		placeholders.Summary = DefaultSummaryPlaceholder
	}
	return &Normalizer{
		logger:       logger.With().Str("component", "normalizer").Logger(),
		metrics:      metrics,
		placeholders: placeholders,
	}
}

// NormalizeFeed normalizes every entry under the root's feed element.
// A root that is not an object is an error; a root without a feed object
// returns domain.ErrUnexpectedFormat.
func (n *Normalizer) NormalizeFeed(root any) ([]domain.PaperSummary, error) {
	feed, err := n.FeedNode(root)
	if err != nil {
		return nil, err
	}
	return n.NormalizeEntries(feed["entry"]), nil
}

// FeedNode returns the feed element of a parsed root.
func (n *Normalizer) FeedNode(root any) (map[string]any, error) {
	obj, ok := n.asObject(root)
	if !ok {
		return nil, fmt.Errorf("parsed feed payload is not an object (got %T)", root)
	}

	feed, ok := obj["feed"].(map[string]any)
	if !ok {
		n.logger.Error().
			Strs("root_keys", sortedKeys(obj)).
			Msg("parsed payload has no feed element")
		return nil, domain.ErrUnexpectedFormat
	}
	return feed, nil
}

// NormalizeEntries normalizes the raw entry field of a feed, which may be
// absent, a single entry, or a list of entries. Rejected entries are
// dropped and the order of the rest is kept. The result is never nil.
func (n *Normalizer) NormalizeEntries(entry any) []domain.PaperSummary {
	nodes := asSequence(entry)
	if len(nodes) == 0 {
		n.logger.Info().Msg("feed contained no entries")
	}

	papers := make([]domain.PaperSummary, 0, len(nodes))
	for _, node := range nodes {
		if paper, ok := n.NormalizeEntry(node); ok {
			papers = append(papers, paper)
		}
	}
	return papers
}

// NormalizeEntry maps one raw entry node to a PaperSummary. It reports false
// when the entry has no usable identifier.
func (n *Normalizer) NormalizeEntry(node any) (domain.PaperSummary, bool) {
	raw, _ := decodeEntry(node)

	if raw.ID == nil {
		n.logger.Warn().Str("raw_id", missingID).Msg("dropping entry without id")
		n.metrics.RecordEntryDropped()
		return domain.PaperSummary{}, false
	}

	id, ok := extractID(*raw.ID)
	if !ok {
		n.logger.Warn().Str("raw_id", *raw.ID).Msg("dropping entry with unrecognized id")
		n.metrics.RecordEntryDropped()
		return domain.PaperSummary{}, false
	}

	pdfLink := resolvePDFLink(*raw.ID, raw.Links)
	if pdfLink == "" {
		n.logger.Warn().Str("paper_id", id).Msg("no pdf link for entry")
	}

	paper := domain.PaperSummary{
		ID:         id,
		Title:      textOr(raw.Title, n.placeholders.Title),
		Summary:    textOr(raw.Summary, n.placeholders.Summary),
		Authors:    authorNames(raw.Authors),
		Published:  valueOr(raw.Published, ""),
		Updated:    valueOr(raw.Updated, ""),
		PDFLink:    pdfLink,
		Categories: categoryTerms(raw.Categories),
	}
	n.metrics.RecordEntryNormalized(paper.HasPDF())
	return paper, true
}

// asObject reports whether v is a parsed object, logging when it is not.
func (n *Normalizer) asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		n.logger.Error().
			Str("type", fmt.Sprintf("%T", v)).
			Msg("parsed feed payload is not an object")
		return nil, false
	}
	return m, true
}

func extractID(rawID string) (string, bool) {
	match := idPattern.FindStringSubmatch(rawID)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// resolvePDFLink prefers a link titled "pdf" and otherwise derives one from
// the abstract URL. It returns "" when neither yields an absolute URL.
func resolvePDFLink(rawID string, links []RawLink) string {
	for _, l := range links {
		if l.Title != nil && *l.Title == "pdf" && l.Href != nil && *l.Href != "" {
			return *l.Href
		}
	}

	if !strings.Contains(rawID, "/abs/") {
		return ""
	}
	candidate := strings.Replace(rawID, "/abs/", "/pdf/", 1) + ".pdf"
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return candidate
	}
	return ""
}

func authorNames(authors []RawAuthor) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.Name == nil {
			continue
		}
		if name := strings.TrimSpace(*a.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func categoryTerms(categories []RawCategory) []string {
	terms := make([]string, 0, len(categories))
	for _, c := range categories {
		if c.Term != nil && *c.Term != "" {
			terms = append(terms, *c.Term)
		}
	}
	return terms
}

func collapseWhitespace(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimFunc(s, isSpace), " ")
}

// isSpace matches the same characters as multiSpace.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || r == '\uFEFF'
}

func textOr(s *string, placeholder string) string {
	if s == nil {
		return placeholder
	}
	return collapseWhitespace(*s)
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
