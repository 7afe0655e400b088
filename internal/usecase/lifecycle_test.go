package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/executor"
)

func newManager(store *memStore, ext *fakeExtractor, notifier *recordingNotifier, sources ...stubSource) *LifecycleManager {
	reg := registryOf()
	for _, s := range sources {
		reg.Register(s)
	}
	deps := LifecycleDeps{
		Store:      store,
		Discoverer: NewDiscoverer(reg, store, nil, fastPacing, nil),
		Extractor:  ext,
		Validator:  titleValidator{},
		Guard:      schemeGuard{},
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return NewLifecycleManager(deps, executor.Config{Concurrency: 2})
}

func readyBatch(t *testing.T, store *memStore, urls ...string) domain.DiscoveryBatch {
	t.Helper()
	b := domain.DiscoveryBatch{
		ID:             "batch-1",
		OrganizationID: acme.ID,
		Status:         domain.BatchReadyForProcessing,
		DiscoveredURLs: urls,
		TotalURLs:      len(urls),
		StartedAt:      time.Now(),
	}
	require.NoError(t, store.CreateBatch(context.Background(), b))
	return b
}

func TestProcessBatchMixedOutcomes(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	store.seedArticle(acme.ID, "https://acme.org/old")
	ext := &fakeExtractor{
		articles: map[string]domain.ExtractedArticle{
			"https://acme.org/good":   {Title: "Clinic opens", Content: "body", PublishedAt: "2025-03-14"},
			"https://acme.org/reject": {Title: "reject me", Content: "body"},
		},
		errs: map[string]error{
			"https://acme.org/slow": fmt.Errorf("job x: %w", domain.ErrExtractionTimeout),
		},
	}
	notifier := &recordingNotifier{}
	m := newManager(store, ext, notifier)

	readyBatch(t, store,
		"https://acme.org/good",
		"https://acme.org/old",
		"https://acme.org/reject",
		"https://acme.org/slow",
		"ftp://acme.org/file",
		"https://acme.org/empty",
	)

	report, err := m.ProcessBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, report.Items, 6)

	statuses := map[string]domain.ItemStatus{}
	for _, item := range report.Items {
		statuses[item.URL] = item.Status
	}
	assert.Equal(t, map[string]domain.ItemStatus{
		"https://acme.org/good":   domain.ItemSuccess,
		"https://acme.org/old":    domain.ItemDuplicate,
		"https://acme.org/reject": domain.ItemError,
		"https://acme.org/slow":   domain.ItemError,
		"ftp://acme.org/file":     domain.ItemError,
		"https://acme.org/empty":  domain.ItemError,
	}, statuses)

	assert.Equal(t, domain.BatchCompleted, report.Batch.Status)
	assert.Equal(t, 6, report.Batch.ProcessedURLs)
	assert.Equal(t, 2, report.Batch.SuccessfulURLs)
	assert.Equal(t, 4, report.Batch.FailedURLs)
	assert.NotNil(t, report.Batch.CompletedAt)

	good, ok := store.article(acme.ID, "https://acme.org/good")
	require.True(t, ok)
	assert.Equal(t, domain.ArticleDraft, good.Status)
	require.NotNil(t, good.PublishedAt)
	assert.Equal(t, 2025, good.PublishedAt.Year())

	rejected, ok := store.article(acme.ID, "https://acme.org/reject")
	require.True(t, ok, "rejected articles are kept for audit")
	assert.Equal(t, domain.ArticleRejected, rejected.Status)
	assert.Contains(t, rejected.ValidationReasons, "low relevance to organization")

	assert.NotContains(t, ext.calls, "ftp://acme.org/file", "malformed urls never reach extraction")
	assert.NotContains(t, ext.calls, "https://acme.org/old", "known urls are not re-extracted")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "processed 6, successful 2, failed 4")
}

func TestProcessBatchConflictIsDuplicate(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	store.createArticleFunc = func(domain.Article) error {
		return fmt.Errorf("insert: %w", domain.ErrPersistenceConflict)
	}
	ext := &fakeExtractor{articles: map[string]domain.ExtractedArticle{"https://acme.org/a": {Title: "A"}}}
	m := newManager(store, ext, nil)
	readyBatch(t, store, "https://acme.org/a")

	report, err := m.ProcessBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, domain.ItemDuplicate, report.Items[0].Status)
	assert.Equal(t, 1, report.Batch.SuccessfulURLs)
}

func TestProcessBatchZeroURLsCompletes(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	m := newManager(store, &fakeExtractor{}, nil)
	readyBatch(t, store)

	report, err := m.ProcessBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, report.Batch.Status)
	assert.Zero(t, report.Batch.ProcessedURLs)
	assert.Zero(t, report.Batch.SuccessfulURLs)
	assert.Zero(t, report.Batch.FailedURLs)
	assert.Equal(t, []domain.BatchStatus{domain.BatchProcessing, domain.BatchCompleted}, store.updates)
}

func TestProcessBatchRefusesCompletedBatch(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	m := newManager(store, &fakeExtractor{}, nil)
	b := readyBatch(t, store)
	b.Status = domain.BatchCompleted
	require.NoError(t, store.CreateBatch(context.Background(), b))

	_, err := m.ProcessBatch(context.Background(), "batch-1")
	var invalid *domain.ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.BatchCompleted, invalid.From)
	assert.Equal(t, domain.BatchProcessing, invalid.To)
}

func TestProcessBatchCancelledMarksFailed(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	m := newManager(store, &fakeExtractor{}, nil)
	readyBatch(t, store, "https://acme.org/a", "https://acme.org/b", "https://acme.org/c")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := m.ProcessBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, report.Batch.Status)
	assert.Equal(t, 3, report.Batch.ProcessedURLs)
	assert.Equal(t, 3, report.Batch.FailedURLs)
	assert.Contains(t, report.Batch.Error, "interrupted")
}

func TestRunDiscoversAndProcessesEachOrganization(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	store.seedArticle(acme.ID, "https://acme.org/u2")
	ext := &fakeExtractor{articles: map[string]domain.ExtractedArticle{
		"https://acme.org/u1": {Title: "One"},
		"https://acme.org/u3": {Title: "Three"},
	}}
	m := newManager(store, ext, nil,
		stubSource{name: "feed", urls: []string{"https://acme.org/u1", "https://acme.org/u2"}},
		stubSource{name: "search", urls: []string{"https://acme.org/u2", "https://acme.org/u3"}},
	)

	reports, err := m.Run(context.Background(), []domain.Organization{acme}, 30)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	b := reports[0].Batch
	assert.Equal(t, domain.BatchCompleted, b.Status)
	assert.Equal(t, 2, b.ProcessedURLs)
	assert.Equal(t, 2, b.SuccessfulURLs)
	assert.ElementsMatch(t, []string{"https://acme.org/u1", "https://acme.org/u3"}, ext.calls)
}

func TestRunAllUsesStoredOrganizations(t *testing.T) {
	t.Parallel()

	store := newMemStore(acme)
	m := newManager(store, &fakeExtractor{}, nil)

	reports, err := m.RunAll(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, domain.BatchCompleted, reports[0].Batch.Status)
}

func TestBuildSummary(t *testing.T) {
	t.Parallel()

	s := BuildSummary(BatchReport{
		Organization: acme,
		Batch:        domain.DiscoveryBatch{ID: "b1", Status: domain.BatchCompleted, ProcessedURLs: 3, SuccessfulURLs: 2, FailedURLs: 1},
		Items: []domain.ItemResult{
			{Status: domain.ItemSuccess}, {Status: domain.ItemDuplicate}, {Status: domain.ItemError},
		},
	})
	assert.Contains(t, s, "Acme Health: batch b1 completed")
	assert.Contains(t, s, "new 1, duplicate 1, error 1")
}
