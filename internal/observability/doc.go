// Package observability provides logging, metrics, and request context support for
// the paper feed service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info().Str("request_id", reqID).Msg("search started")
//
// Components receive the logger at construction time and add their own
// "component" field; nothing in the service logs through a global logger.
//
// # Metrics
//
//	metrics := observability.NewMetrics("paperfeed", prometheus.DefaultRegisterer)
//	metrics.RecordSearch("ok", 0.42)
//	metrics.RecordEntryNormalized(true)
//
// A nil *Metrics is valid and records nothing.
//
// # Standard Fields
//
//   - request_id: inbound request identifier (X-Correlation-ID)
//   - query: free-text search query, empty for the default category feed
//   - source: upstream feed name
//   - raw_id: entry id exactly as it appeared in the feed
//   - paper_id: extracted public identifier
//   - status_code: upstream HTTP status
package observability
