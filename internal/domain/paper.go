// Package domain provides the domain models and error taxonomy for the paper feed service.
package domain

// PaperSummary is the application-facing record produced for one feed entry.
// It is built fresh per entry and never mutated afterwards.
type PaperSummary struct {
	// ID is the public identifier with any version suffix stripped (e.g. "2301.12345").
	ID string `json:"id"`

	// Title is whitespace-collapsed, or a placeholder when the entry has none.
	Title string `json:"title"`

	// Summary is the whitespace-collapsed abstract, or a placeholder.
	Summary string `json:"summary"`

	// Authors lists author names in source order. Never nil.
	Authors []string `json:"authors"`

	// Published is the raw timestamp string from the feed, or empty.
	Published string `json:"published"`

	// Updated is the raw timestamp string from the feed, or empty.
	Updated string `json:"updated"`

	// PDFLink is an absolute URL to the PDF, or empty when none could be resolved.
	PDFLink string `json:"pdfLink"`

	// Categories lists category terms in source order. Never nil.
	Categories []string `json:"categories"`
}

// HasPDF reports whether a PDF link was resolved for the paper.
func (p PaperSummary) HasPDF() bool {
	return p.PDFLink != ""
}
