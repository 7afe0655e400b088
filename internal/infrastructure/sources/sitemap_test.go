package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/httpjson"
)

type mapperFunc func(ctx context.Context, rootURL, hint string) ([]string, error)

func (f mapperFunc) Map(ctx context.Context, rootURL, hint string) ([]string, error) {
	return f(ctx, rootURL, hint)
}

func TestSiteMapSourceQuotaIsEmptyResult(t *testing.T) {
	t.Parallel()

	src := NewSiteMapSource(mapperFunc(func(context.Context, string, string) ([]string, error) {
		return nil, domain.ErrQuotaExhausted
	}), nil)

	links, err := src.Discover(context.Background(), domain.Organization{Name: "Acme", Website: "https://acme.org"}, discovery.Request{})
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestSiteMapSourceFiltersAndPassesHint(t *testing.T) {
	t.Parallel()

	src := NewSiteMapSource(mapperFunc(func(_ context.Context, root, hint string) ([]string, error) {
		assert.Equal(t, "https://acme.org", root)
		assert.Equal(t, "Acme", hint)
		return []string{"https://acme.org/news/1", "javascript:void(0)", "https://acme.org/news/1", "https://acme.org/news/2"}, nil
	}), nil)

	links, err := src.Discover(context.Background(), domain.Organization{Name: "Acme", Website: "https://acme.org"}, discovery.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.org/news/1", "https://acme.org/news/2"}, links)
}

func TestSiteMapSourceHardFailure(t *testing.T) {
	t.Parallel()

	src := NewSiteMapSource(mapperFunc(func(context.Context, string, string) ([]string, error) {
		return nil, errors.New("dns failure")
	}), nil)

	_, err := src.Discover(context.Background(), domain.Organization{Name: "Acme", Website: "https://acme.org"}, discovery.Request{})
	require.Error(t, err)
	assert.Equal(t, discovery.SeverityHard, discovery.Classify(err))
	assert.False(t, src.Applies(domain.Organization{Name: "Acme"}))
}

func TestMapClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/map", r.URL.Path)
		var req mapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.URL == "https://broke.org" {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"success":false,"error":"Insufficient credits"}`))
			return
		}
		assert.Equal(t, "Acme", req.Search)
		_, _ = w.Write([]byte(`{"success":true,"links":["https://acme.org/a","https://acme.org/b"]}`))
	}))
	defer srv.Close()

	client := NewMapClient(httpjson.NewClient(srv.URL, httpjson.Options{APIKey: "fc"}), 0)

	links, err := client.Map(context.Background(), "https://acme.org", "Acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.org/a", "https://acme.org/b"}, links)

	_, err = client.Map(context.Background(), "https://broke.org", "Broke")
	assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
}
