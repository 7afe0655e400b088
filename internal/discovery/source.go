// Package discovery defines the contract shared by candidate-URL sources.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"NewsHarvester/internal/domain"
)

// Request carries the parameters of one discovery call.
type Request struct {
	TimeframeDays int
}

// Source captures a single discovery strategy (search, curated feed, site map).
type Source interface {
	Name() string
	// Applies reports whether the organization carries what this source needs.
	Applies(org domain.Organization) bool
	Discover(ctx context.Context, org domain.Organization, req Request) ([]string, error)
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register adds or replaces a source implementation.
func (r *Registry) Register(source Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	r.sources[source.Name()] = source
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Source, error) {
	if source, ok := r.sources[name]; ok {
		return source, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Applicable returns the registered sources that apply to org, sorted by name.
func (r *Registry) Applicable(org domain.Organization) []Source {
	var out []Source
	for _, s := range r.sources {
		if s.Applies(org) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Severity says whether a source failure degrades coverage or signals a real fault.
type Severity int

const (
	SeveritySoft Severity = iota
	SeverityHard
)

func (s Severity) String() string {
	if s == SeveritySoft {
		return "soft"
	}
	return "hard"
}

// Classify maps a source error onto a severity once, at the adapter boundary.
// Quota exhaustion and exhausted sources are soft; everything else is hard.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeveritySoft
	case errors.Is(err, domain.ErrQuotaExhausted), errors.Is(err, domain.ErrSourceExhausted):
		return SeveritySoft
	default:
		return SeverityHard
	}
}

// Report is the per-source observability record of one organization's discovery.
type Report struct {
	Source   string
	Count    int
	Err      error
	Severity Severity
}
