package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsHarvester/internal/domain"
)

type stubSource struct {
	name    string
	applies bool
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Applies(domain.Organization) bool { return s.applies }

func (s stubSource) Discover(context.Context, domain.Organization, Request) ([]string, error) {
	return nil, nil
}

func TestRegistryResolveAndApplicable(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubSource{name: "sitemap", applies: true})
	reg.Register(stubSource{name: "feed", applies: false})
	reg.Register(stubSource{name: "search", applies: true})

	got, err := reg.Resolve("feed")
	require.NoError(t, err)
	assert.Equal(t, "feed", got.Name())

	_, err = reg.Resolve("missing")
	assert.Error(t, err)

	var names []string
	for _, s := range reg.Applicable(domain.Organization{Name: "Acme"}) {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"search", "sitemap"}, names)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SeveritySoft, Classify(fmt.Errorf("map: %w", domain.ErrQuotaExhausted)))
	assert.Equal(t, SeveritySoft, Classify(domain.ErrSourceExhausted))
	assert.Equal(t, SeverityHard, Classify(fmt.Errorf("fetch: %w", domain.ErrSourceUnavailable)))
	assert.Equal(t, SeverityHard, Classify(errors.New("unexpected")))
	assert.Equal(t, "soft", SeveritySoft.String())
	assert.Equal(t, "hard", SeverityHard.String())
}
