package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
)

var acme = domain.Organization{ID: "org-acme", Name: "Acme Health", Website: "https://acme.org"}

var fastPacing = DiscovererConfig{CourtesyDelay: time.Millisecond}

func TestDiscoverUnionsAndSubtractsIngested(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	store.seedArticle(acme.ID, "u2")

	d := NewDiscoverer(registryOf(
		stubSource{name: "feed", urls: []string{"u1", "u2"}},
		stubSource{name: "search", urls: []string{"u2", "u3"}},
	), store, nil, fastPacing, nil)

	res, err := d.DiscoverOrganization(context.Background(), acme, 30)
	require.NoError(t, err)

	assert.Equal(t, domain.BatchReadyForProcessing, res.Batch.Status)
	assert.ElementsMatch(t, []string{"u1", "u3"}, res.Batch.DiscoveredURLs)
	assert.Equal(t, 2, res.Batch.TotalURLs)
	assert.Equal(t, map[string]int{"feed": 2, "search": 2}, res.Batch.SourceCounts)
	assert.NotNil(t, res.Batch.DiscoveredAt)

	stored, err := store.GetBatch(context.Background(), res.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Batch.DiscoveredURLs, stored.DiscoveredURLs)
	assert.Equal(t, 30, stored.TimeframeDays)
}

func TestDiscoverToleratesSourceFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	d := NewDiscoverer(registryOf(
		stubSource{name: "feed", err: fmt.Errorf("%w: 503", domain.ErrSourceUnavailable)},
		stubSource{name: "search", urls: []string{"u1"}},
		stubSource{name: "sitemap", err: domain.ErrQuotaExhausted},
	), store, nil, fastPacing, nil)

	res, err := d.DiscoverOrganization(context.Background(), acme, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchReadyForProcessing, res.Batch.Status)
	assert.Equal(t, []string{"u1"}, res.Batch.DiscoveredURLs)

	require.Len(t, res.Reports, 3)
	severities := map[string]discovery.Severity{}
	for _, r := range res.Reports {
		if r.Err != nil {
			severities[r.Source] = r.Severity
		}
	}
	assert.Equal(t, map[string]discovery.Severity{
		"feed":    discovery.SeverityHard,
		"sitemap": discovery.SeveritySoft,
	}, severities)
}

func TestDiscoverBatchCreationFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	store.createBatchFunc = func(domain.DiscoveryBatch) error { return errBoom }

	d := NewDiscoverer(registryOf(stubSource{name: "feed", urls: []string{"u1"}}), store, nil, fastPacing, nil)
	_, err := d.DiscoverOrganization(context.Background(), acme, 7)
	assert.ErrorIs(t, err, errBoom)
}

func TestDiscoverFailureAfterCreationMarksBatchFailed(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	store.findErr = errBoom

	d := NewDiscoverer(registryOf(stubSource{name: "feed", urls: []string{"u1"}}), store, nil, fastPacing, nil)
	res, err := d.DiscoverOrganization(context.Background(), acme, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, res.Batch.Status)
	assert.Contains(t, res.Batch.Error, "boom")

	stored, err := store.GetBatch(context.Background(), res.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, stored.Status)
}

func TestDiscoverRecoversFromSourcePanic(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	d := NewDiscoverer(registryOf(panicSource{}, stubSource{name: "search", urls: []string{"u1"}}), store, nil, fastPacing, nil)

	res, err := d.DiscoverOrganization(context.Background(), acme, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, res.Batch.DiscoveredURLs)
}

type panicSource struct{}

func (panicSource) Name() string                     { return "broken" }
func (panicSource) Applies(domain.Organization) bool { return true }
func (panicSource) Discover(context.Context, domain.Organization, discovery.Request) ([]string, error) {
	panic("nil map")
}

func TestDiscoverOrganizationsContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	other := domain.Organization{ID: "org-other", Name: "Other"}
	store := newMemStore(acme, other)
	store.createBatchFunc = func(b domain.DiscoveryBatch) error {
		if b.OrganizationID == acme.ID {
			return errBoom
		}
		return nil
	}

	d := NewDiscoverer(registryOf(stubSource{name: "feed", urls: []string{"u1"}}), store, nil, fastPacing, nil)
	results, err := d.DiscoverOrganizations(context.Background(), []domain.Organization{acme, other}, 7)
	require.ErrorIs(t, err, errBoom)
	require.Len(t, results, 1)
	assert.Equal(t, other.ID, results[0].Batch.OrganizationID)
}

func TestCourtesyDelayIsNeverZero(t *testing.T) {
	t.Parallel()

	for _, delay := range []time.Duration{0, -time.Second} {
		d := NewDiscoverer(nil, newMemStore(), nil, DiscovererConfig{CourtesyDelay: delay}, nil)
		assert.Equal(t, DefaultCourtesyDelay, d.CourtesyDelay(), delay)
	}
	d := NewDiscoverer(nil, newMemStore(), nil, DiscovererConfig{CourtesyDelay: 500 * time.Millisecond}, nil)
	assert.Equal(t, 500*time.Millisecond, d.CourtesyDelay())
}

func TestDiscoverOrganizationsPausesBetweenOrganizations(t *testing.T) {
	t.Parallel()

	other := domain.Organization{ID: "org-other", Name: "Other"}
	d := NewDiscoverer(registryOf(stubSource{name: "feed", urls: []string{"u1"}}), newMemStore(acme, other), nil,
		DiscovererConfig{CourtesyDelay: 30 * time.Millisecond}, nil)

	start := time.Now()
	results, err := d.DiscoverOrganizations(context.Background(), []domain.Organization{acme, other}, 7)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestUnionCandidatesKeepsFirstSource(t *testing.T) {
	t.Parallel()

	got := unionCandidates(
		[]discovery.Report{{Source: "feed"}, {Source: "search"}},
		[][]string{{"u1", "", "u2"}, {"u2", "u3"}},
	)
	assert.Equal(t, []domain.CandidateURL{
		{URL: "u1", Source: "feed"},
		{URL: "u2", Source: "feed"},
		{URL: "u3", Source: "search"},
	}, got)
}
