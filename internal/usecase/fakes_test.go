package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/validation"
)

type memStore struct {
	mu       sync.Mutex
	orgs     map[string]domain.Organization
	batches  map[string]domain.DiscoveryBatch
	articles map[string]domain.Article

	createBatchFunc   func(domain.DiscoveryBatch) error
	findErr           error
	createArticleFunc func(domain.Article) error
	updates           []domain.BatchStatus
}

func newMemStore(orgs ...domain.Organization) *memStore {
	s := &memStore{
		orgs:     map[string]domain.Organization{},
		batches:  map[string]domain.DiscoveryBatch{},
		articles: map[string]domain.Article{},
	}
	for _, o := range orgs {
		s.orgs[o.ID] = o
	}
	return s
}

func articleKey(orgID, url string) string { return orgID + "|" + url }

func (s *memStore) seedArticle(orgID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[articleKey(orgID, url)] = domain.Article{OrganizationID: orgID, URL: url, Status: domain.ArticleDraft}
}

func (s *memStore) article(orgID, url string) (domain.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[articleKey(orgID, url)]
	return a, ok
}

func (s *memStore) GetOrganization(_ context.Context, id string) (domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return domain.Organization{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *memStore) ListOrganizations(context.Context) ([]domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Organization
	for _, o := range s.orgs {
		out = append(out, o)
	}
	return out, nil
}

func (s *memStore) ArticleExists(_ context.Context, orgID, url string) (bool, error) {
	_, ok := s.article(orgID, url)
	return ok, nil
}

func (s *memStore) FindArticleURLs(_ context.Context, orgID string, urls []string) (map[string]bool, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := map[string]bool{}
	for _, u := range urls {
		if _, ok := s.article(orgID, u); ok {
			out[u] = true
		}
	}
	return out, nil
}

func (s *memStore) CreateArticle(_ context.Context, a domain.Article) error {
	if s.createArticleFunc != nil {
		if err := s.createArticleFunc(a); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := articleKey(a.OrganizationID, a.URL)
	if _, ok := s.articles[key]; ok {
		return fmt.Errorf("insert: %w", domain.ErrPersistenceConflict)
	}
	s.articles[key] = a
	return nil
}

func (s *memStore) CreateBatch(_ context.Context, b domain.DiscoveryBatch) error {
	if s.createBatchFunc != nil {
		if err := s.createBatchFunc(b); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
	return nil
}

func (s *memStore) UpdateBatch(_ context.Context, id string, u domain.BatchUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Apply(&b)
	s.batches[id] = b
	if u.Status != nil {
		s.updates = append(s.updates, *u.Status)
	}
	return nil
}

func (s *memStore) GetBatch(_ context.Context, id string) (domain.DiscoveryBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return domain.DiscoveryBatch{}, domain.ErrNotFound
	}
	return b, nil
}

type stubSource struct {
	name string
	urls []string
	err  error
}

func (s stubSource) Name() string                     { return s.name }
func (s stubSource) Applies(domain.Organization) bool { return true }
func (s stubSource) Discover(context.Context, domain.Organization, discovery.Request) ([]string, error) {
	return s.urls, s.err
}

func registryOf(sources ...discovery.Source) *discovery.Registry {
	reg := discovery.NewRegistry()
	for _, s := range sources {
		reg.Register(s)
	}
	return reg
}

type fakeExtractor struct {
	mu       sync.Mutex
	articles map[string]domain.ExtractedArticle
	errs     map[string]error
	calls    []string
}

func (f *fakeExtractor) Extract(_ context.Context, urls []string, _ string) (map[string]domain.ExtractedArticle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, urls...)
	f.mu.Unlock()
	out := map[string]domain.ExtractedArticle{}
	for _, u := range urls {
		if err := f.errs[u]; err != nil {
			return nil, err
		}
		if a, ok := f.articles[u]; ok {
			out[u] = a
		}
	}
	return out, nil
}

// titleValidator rejects any article whose title starts with "reject".
type titleValidator struct{}

func (titleValidator) Validate(_ context.Context, c validation.Candidate) validation.Result {
	if len(c.Title) >= 6 && c.Title[:6] == "reject" {
		return validation.Result{IsValid: false, Reasons: []string{"low relevance to organization"},
			Sentiment: domain.SentimentNeutral, ContentType: domain.ContentNews, Relevance: domain.RelevanceLow}
	}
	return validation.Result{IsValid: true, Reasons: []string{"accepted"},
		Sentiment: domain.SentimentPositive, ContentType: domain.ContentNews, Relevance: domain.RelevanceHigh}
}

type schemeGuard struct{}

func (schemeGuard) ValidateURL(raw string) error {
	if len(raw) < 4 || raw[:4] != "http" {
		return fmt.Errorf("%w: %s", domain.ErrMalformedURL, raw)
	}
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) PublishBatchSummary(_ context.Context, summary string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, summary)
	return nil
}

var errBoom = errors.New("boom")
