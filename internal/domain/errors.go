package domain

import (
	"errors"
	"strings"
)

// Pipeline error taxonomy. Adapters and clients wrap these so callers can branch with errors.Is.
var (
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrSourceExhausted     = errors.New("source exhausted")
	ErrQuotaExhausted      = errors.New("quota exhausted")
	ErrExtractionTimeout   = errors.New("extraction timed out")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrClassification      = errors.New("classification failed")
	ErrMalformedURL        = errors.New("malformed url")
	ErrPersistenceConflict = errors.New("persistence conflict")
	ErrNotFound            = errors.New("not found")
)

func normalizeEnum(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(v)
}
