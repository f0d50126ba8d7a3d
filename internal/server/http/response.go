package httpserver

import "github.com/helixir/paper-feed-service/internal/domain"

// Response headers carrying feed pagination metadata.
const (
	headerTotalResults = "X-Total-Results"
	headerStartIndex   = "X-Start-Index"
	headerCache        = "X-Cache"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// paperListResponse is the body of a successful search: a bare JSON array.
type paperListResponse []domain.PaperSummary

func toPaperList(papers []domain.PaperSummary) paperListResponse {
	if papers == nil {
		return paperListResponse{}
	}
	return paperListResponse(papers)
}
