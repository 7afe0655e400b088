package app

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/llm"
)

type orgStore struct {
	orgs map[string]domain.Organization
}

func (s orgStore) GetOrganization(_ context.Context, id string) (domain.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return domain.Organization{}, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
	}
	return org, nil
}

func (s orgStore) ListOrganizations(context.Context) ([]domain.Organization, error) {
	out := make([]domain.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, o)
	}
	return out, nil
}

func (orgStore) ArticleExists(context.Context, string, string) (bool, error) { return false, nil }
func (orgStore) FindArticleURLs(context.Context, string, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (orgStore) CreateArticle(context.Context, domain.Article) error           { return nil }
func (orgStore) CreateBatch(context.Context, domain.DiscoveryBatch) error      { return nil }
func (orgStore) UpdateBatch(context.Context, string, domain.BatchUpdate) error { return nil }
func (orgStore) GetBatch(context.Context, string) (domain.DiscoveryBatch, error) {
	return domain.DiscoveryBatch{}, domain.ErrNotFound
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	cfg.Search.APIKey = ""
	cfg.SiteMap.APIKey = ""
	return cfg
}

func TestBuildWithoutClassifierKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.ChatGPT.APIKey = ""

	a, err := build(cfg, orgStore{}, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, a.manager)
	assert.NotNil(t, a.discoverer)
	assert.NoError(t, a.Close())
}

func TestSourceRegistryFollowsKeys(t *testing.T) {
	cfg := testConfig(t)

	reg := newSourceRegistry(cfg, quietLogger())
	_, err := reg.Resolve("feed")
	assert.NoError(t, err)
	_, err = reg.Resolve("search")
	assert.Error(t, err)

	cfg.Search.APIKey = "k"
	cfg.SiteMap.APIKey = "k"
	reg = newSourceRegistry(cfg, quietLogger())
	for _, name := range []string{"search", "feed", "sitemap"} {
		_, err := reg.Resolve(name)
		assert.NoError(t, err, name)
	}
}

func TestNewClassifierProviders(t *testing.T) {
	cfg := testConfig(t).Classifier
	cfg.ChatGPT.APIKey = "sk"
	cfg.Anthropic.APIKey = "ak"

	c, err := newClassifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.ChatGPTClassifier{}, c)

	cfg.Provider = config.ProviderAnthropic
	c, err = newClassifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.AnthropicClassifier{}, c)

	cfg.Anthropic.APIKey = ""
	c, err = newClassifier(cfg)
	assert.Error(t, err)
	assert.Nil(t, c)

	cfg.Provider = "oracle"
	_, err = newClassifier(cfg)
	assert.Error(t, err)
}

func TestOrganizations(t *testing.T) {
	store := orgStore{orgs: map[string]domain.Organization{
		"o1": {ID: "o1", Name: "Acme"},
		"o2": {ID: "o2", Name: "Globex"},
	}}
	a, err := build(testConfig(t), store, quietLogger())
	require.NoError(t, err)

	all, err := a.Organizations(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := a.Organizations(context.Background(), []string{"o2"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "Globex", some[0].Name)

	_, err = a.Organizations(context.Background(), []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 7, a.timeframe(7))
	assert.Equal(t, 30, a.timeframe(0))
}
