package domain

import (
	"errors"
	"fmt"
)

// ErrRelevanceUnavailable signals that the LLM evaluator could not produce a
// judgment (timeout, transport failure, misconfiguration). It is not an error
// to the caller of the filter engine: the engine switches to its deterministic
// keyword fallback instead.
var ErrRelevanceUnavailable = errors.New("relevance evaluation unavailable")

// MalformedEntryError marks a feed entry that cannot be normalized into a
// Deal. The entry is skipped and logged; it never aborts batch processing.
type MalformedEntryError struct {
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed feed entry: %s", e.Reason)
}

// IsMalformedEntry reports whether err wraps a MalformedEntryError.
func IsMalformedEntry(err error) bool {
	var m *MalformedEntryError
	return errors.As(err, &m)
}
