package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// SiteMapSource asks a site-mapping service for candidate URLs under the organization website.
type SiteMapSource struct {
	mapper ports.SiteMapper
	logger *slog.Logger
}

var _ discovery.Source = (*SiteMapSource)(nil)

// NewSiteMapSource wires a site mapper.
func NewSiteMapSource(mapper ports.SiteMapper, logger *slog.Logger) *SiteMapSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SiteMapSource{mapper: mapper, logger: logger}
}

// Name identifies the source inside the registry.
func (s *SiteMapSource) Name() string {
	return "sitemap"
}

// Applies requires a website.
func (s *SiteMapSource) Applies(org domain.Organization) bool {
	return org.Website != "" && s.mapper != nil
}

// Discover maps the website with the organization name as a hint. Exhausted credits are
// logged and yield an empty result instead of an error.
func (s *SiteMapSource) Discover(ctx context.Context, org domain.Organization, _ discovery.Request) ([]string, error) {
	links, err := s.mapper.Map(ctx, org.Website, org.Name)
	if errors.Is(err, domain.ErrQuotaExhausted) {
		s.logger.Warn("site mapping credits exhausted, skipping", "org", org.Name, "website", org.Website)
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", org.Website, err)
	}

	out := make([]string, 0, len(links))
	seen := map[string]struct{}{}
	for _, l := range links {
		if !isAbsoluteHTTP(l) {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}
