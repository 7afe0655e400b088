package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// SearchTopics is the taxonomy expanded against the organization name.
var SearchTopics = []string{
	"recent developments",
	"impact stories",
	"partnerships",
	"recognition",
}

// DefaultLookbackWindows are the recency windows, in days, each topic is searched with.
var DefaultLookbackWindows = []int{7, 30, 90}

// SearchSource expands an organization into topic queries and unions the hits.
type SearchSource struct {
	provider ports.SearchProvider
	windows  []int
	logger   *slog.Logger
}

var _ discovery.Source = (*SearchSource)(nil)

// NewSearchSource wires a search provider. Nil windows fall back to DefaultLookbackWindows.
func NewSearchSource(provider ports.SearchProvider, windows []int, logger *slog.Logger) *SearchSource {
	if len(windows) == 0 {
		windows = DefaultLookbackWindows
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchSource{provider: provider, windows: windows, logger: logger}
}

// Name identifies the source inside the registry.
func (s *SearchSource) Name() string {
	return "search"
}

// Applies requires only an organization name.
func (s *SearchSource) Applies(org domain.Organization) bool {
	return org.Name != "" && s.provider != nil
}

// Discover issues every topic query for every window and returns the de-duplicated URLs.
// Individual query failures are tolerated; the source fails only when nothing succeeded.
func (s *SearchSource) Discover(ctx context.Context, org domain.Organization, req discovery.Request) ([]string, error) {
	windows := lookbackWindows(s.windows, req.TimeframeDays)
	queries := BuildQueries(org.Name)

	seen := map[string]struct{}{}
	var (
		urls      []string
		succeeded int
		lastErr   error
	)

	for _, q := range queries {
		for _, days := range windows {
			if err := ctx.Err(); err != nil {
				return urls, err
			}

			hits, err := s.provider.Search(ctx, q, days)
			if err != nil {
				lastErr = err
				if errors.Is(err, domain.ErrQuotaExhausted) {
					s.logger.Warn("search quota exhausted", "org", org.Name, "collected", len(urls))
					if len(urls) > 0 {
						return urls, nil
					}
					return nil, err
				}
				s.logger.Debug("search query failed", "query", q, "days", days, "error", err)
				continue
			}

			succeeded++
			for _, hit := range hits {
				if hit.URL == "" {
					continue
				}
				if _, ok := seen[hit.URL]; ok {
					continue
				}
				seen[hit.URL] = struct{}{}
				urls = append(urls, hit.URL)
			}
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, fmt.Errorf("%w: all search queries failed: %v", domain.ErrSourceUnavailable, lastErr)
	}
	return urls, nil
}

// BuildQueries returns one quoted-name query per topic.
func BuildQueries(orgName string) []string {
	queries := make([]string, 0, len(SearchTopics))
	for _, topic := range SearchTopics {
		queries = append(queries, fmt.Sprintf("%q %s", orgName, topic))
	}
	return queries
}

// lookbackWindows keeps the configured windows that fit in timeframeDays and always includes
// timeframeDays itself.
func lookbackWindows(configured []int, timeframeDays int) []int {
	if timeframeDays <= 0 {
		return slices.Clone(configured)
	}
	var out []int
	for _, w := range configured {
		if w > 0 && w <= timeframeDays && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	if !slices.Contains(out, timeframeDays) {
		out = append(out, timeframeDays)
	}
	slices.Sort(out)
	return out
}
