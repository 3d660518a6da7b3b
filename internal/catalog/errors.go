package catalog

import (
	"errors"
	"fmt"
)

// The five canonical error kinds that may cross the pipeline boundary.
// Callers branch with errors.Is / AsNoMatch; nothing else escapes.
var (
	// ErrInvalidInput marks a malformed query or contradictory filter
	// set. Surfaced, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient marks an upstream timeout, throttle or 5xx after
	// the adapter's retry budget is exhausted.
	ErrTransient = errors.New("transient upstream failure")

	// ErrUnavailable marks a definitively broken upstream: breaker
	// open, bad credentials. Surfaced immediately.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrInternal marks an invariant violation inside the core.
	ErrInternal = errors.New("internal error")
)

// NoMatchReason identifies which stage emptied the candidate set, so
// transports can tell the user which constraint eliminated results.
type NoMatchReason string

const (
	NoSearchResults      NoMatchReason = "no_search_results"
	NoMatchPriceFilter   NoMatchReason = "price_filter"
	NoMatchBrandFilter   NoMatchReason = "brand_filter"
	NoMatchDiscount      NoMatchReason = "discount_filter"
	NoMatchPostEnrich    NoMatchReason = "post_enrichment_empty"
	NoMatchAllModelsFail NoMatchReason = "all_models_failed"
)

// NoMatchError is a normal outcome, not a fault: the search succeeded
// but a user-stated constraint (never relaxed) emptied the set.
type NoMatchError struct {
	Reason NoMatchReason
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match: %s", e.Reason)
}

// NoMatch builds a NoMatchError for the given reason.
func NoMatch(reason NoMatchReason) error {
	return &NoMatchError{Reason: reason}
}

// AsNoMatch extracts the NoMatch reason if err is one.
func AsNoMatch(err error) (NoMatchReason, bool) {
	var nm *NoMatchError
	if errors.As(err, &nm) {
		return nm.Reason, true
	}
	return "", false
}
