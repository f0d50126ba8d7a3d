package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-feed-service/internal/domain"
	"github.com/helixir/paper-feed-service/internal/observability"
	"github.com/helixir/paper-feed-service/internal/papersources"
)

// Error messages returned to clients.
const (
	msgUpstreamFailed   = "Failed to fetch data from arXiv"
	msgUnexpectedFormat = "Unexpected format"
	msgFetchFailed      = "Failed to fetch papers"
	msgInvalidParameter = "Invalid query parameter"
	msgPaperNotFound    = "Paper not found"
	msgRateLimited      = "Rate limit exceeded"
)

const maxQueryLength = 1000

// searchRequest holds the recognized query parameters of a search.
type searchRequest struct {
	Query      string `query:"query" validate:"max=1000"`
	Start      string `query:"start" validate:"omitempty,number"`
	MaxResults string `query:"max_results" validate:"omitempty,number,intmax=1000"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("intmax", validateIntMax); err != nil {
		panic(fmt.Sprintf("register intmax validation: %v", err))
	}
	return v
}

// validateIntMax checks that a decimal string field is at most the tag parameter.
// Values too large for an int fail.
func validateIntMax(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(fl.Field().String())
	return err == nil && n <= limit
}

// searchPapers handles GET /api/papers.
// It responds with a JSON array of paper summaries.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, s.logger)

	values := r.URL.Query()
	req := searchRequest{
		Query:      strings.TrimSpace(values.Get("query")),
		Start:      strings.TrimSpace(values.Get("start")),
		MaxResults: strings.TrimSpace(values.Get("max_results")),
	}
	if err := s.validateRequest(req); err != nil {
		writeSearchError(w, logger, err)
		return
	}

	result, err := s.source.Search(ctx, papersources.SearchParams{
		Query:      req.Query,
		Start:      req.Start,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		writeSearchError(w, logger, err)
		return
	}

	if result.TotalResults >= 0 {
		w.Header().Set(headerTotalResults, strconv.Itoa(result.TotalResults))
	}
	if result.StartIndex >= 0 {
		w.Header().Set(headerStartIndex, strconv.Itoa(result.StartIndex))
	}
	w.Header().Set(headerCache, cacheStatus(result.FromCache))

	writeJSON(w, logger, http.StatusOK, toPaperList(result.Papers))
}

// getPaper handles GET /api/papers/{id}. Old-style identifiers contain a
// slash, so the id is the rest of the path.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, s.logger)

	id := strings.Trim(chi.URLParam(r, "*"), "/ ")
	if id == "" {
		writeSearchError(w, logger, domain.NewValidationError("id", "must not be empty"))
		return
	}

	paper, err := s.source.GetByID(ctx, id)
	if err != nil {
		writeSearchError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, paper)
}

// validateRequest converts validator failures into a domain.ValidationError
// naming the first offending parameter.
func (s *Server) validateRequest(req searchRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("query", err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "number":
		return domain.NewValidationError(fe.Field(), "must be a non-negative integer")
	case "max":
		return domain.NewValidationError(fe.Field(), "must be at most "+strconv.Itoa(maxQueryLength)+" characters")
	case "intmax":
		return domain.NewValidationError(fe.Field(), "must be at most "+fe.Param())
	default:
		return domain.NewValidationError(fe.Field(), "failed "+fe.Tag()+" validation")
	}
}

// writeSearchError maps an error to an HTTP status and JSON error body.
func writeSearchError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	if err == nil {
		return
	}

	var apiErr *domain.ExternalAPIError
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &apiErr):
		logger.Error().
			Str("source", apiErr.Source).
			Int("status_code", apiErr.StatusCode).
			Msg("upstream request failed")
		writeError(w, logger, upstreamStatus(apiErr.StatusCode), msgUpstreamFailed, apiErr.Message)
	case errors.As(err, &validationErr):
		writeError(w, logger, http.StatusBadRequest, msgInvalidParameter, validationErr.Error())
	case errors.Is(err, papersources.ErrResponseTooLarge):
		logger.Error().Err(err).Msg("upstream response too large")
		writeError(w, logger, http.StatusBadGateway, msgUpstreamFailed, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		logger.Warn().Err(err).Msg("outbound rate limit exceeded")
		writeError(w, logger, http.StatusTooManyRequests, msgRateLimited, "")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, msgPaperNotFound, "")
	case errors.Is(err, domain.ErrUnexpectedFormat):
		logger.Error().Err(err).Msg("upstream feed has unexpected format")
		writeError(w, logger, http.StatusInternalServerError, msgUnexpectedFormat, "")
	default:
		logger.Error().Err(err).Msg("failed to fetch papers")
		writeError(w, logger, http.StatusInternalServerError, msgFetchFailed, err.Error())
	}
}

// upstreamStatus forwards the upstream status, falling back to 502 for
// values that are not valid HTTP error statuses.
func upstreamStatus(code int) int {
	if code < 400 || code > 599 {
		return http.StatusBadGateway
	}
	return code
}

func cacheStatus(fromCache bool) string {
	if fromCache {
		return "HIT"
	}
	return "MISS"
}
