package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
)

func TestIsArticleLink(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://acme.org/news/clinic-opens":          true,
		"https://acme.org/2025/03/clinic-opens":       true,
		"https://acme.org/programs/water":             true,
		"https://acme.org/press-release-2025":         true,
		"https://acme.org/about":                      false,
		"/news/relative-link":                         false,
		"mailto:info@acme.org":                        false,
		"https://acme.org/category/news":              false,
		"https://acme.org/tag/health/":                false,
		"https://acme.org/news/page/2":                false,
		"https://acme.org/news/feed":                  false,
		"https://acme.org/sitemap.xml":                false,
		"https://acme.org/blog/archive/2024":          false,
		"https://acme.org/news?page=3":                false,
		"https://acme.org/blog/why-water-matters?x=1": true,
	}

	for href, want := range cases {
		if got := IsArticleLink(href); got != want {
			t.Fatalf("IsArticleLink(%q) = %v, want %v", href, got, want)
		}
	}
}

func TestExtractArticleLinksCapsAndDedups(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString(`<html><body><a href="https://acme.org/news">self</a>`)
	b.WriteString(`<a href="https://acme.org/news/a">A</a><a href="https://acme.org/news/a">A again</a>`)
	for i := range 80 {
		fmt.Fprintf(&b, `<a href="https://acme.org/news/story-%d">s</a>`, i)
	}
	b.WriteString(`</body></html>`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)

	links := ExtractArticleLinks(doc, "https://acme.org/news")
	assert.Len(t, links, MaxFeedLinks)
	assert.Equal(t, "https://acme.org/news/a", links[0])
	assert.NotContains(t, links, "https://acme.org/news")
}

type stubFetcher struct {
	body        string
	contentType string
	err         error
}

func (s stubFetcher) Fetch(context.Context, string) ([]byte, string, error) {
	return []byte(s.body), s.contentType, s.err
}

func TestFeedSourceParsesHTML(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	  <a href="https://acme.org/news/2025/03/clinic">Clinic</a>
	  <a href="https://acme.org/tag/health">Health</a>
	  <a href="/news/relative">Relative</a>
	</body></html>`
	src := NewFeedSource(stubFetcher{body: html, contentType: "text/html; charset=utf-8"}, nil)

	org := domain.Organization{Name: "Acme", NewsFeedURL: "https://acme.org/news"}
	require.True(t, src.Applies(org))

	links, err := src.Discover(context.Background(), org, discovery.Request{TimeframeDays: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.org/news/2025/03/clinic"}, links)
}

func TestFeedSourceParsesRSS(t *testing.T) {
	t.Parallel()

	rss := `<?xml version="1.0"?>
	<rss version="2.0"><channel><title>Acme</title>
	  <item><title>One</title><link>https://acme.org/news/one</link></item>
	  <item><title>Two</title><link>https://acme.org/news/two</link></item>
	  <item><title>Dup</title><link>https://acme.org/news/one</link></item>
	</channel></rss>`
	src := NewFeedSource(stubFetcher{body: rss, contentType: "application/rss+xml"}, nil)

	links, err := src.Discover(context.Background(), domain.Organization{NewsFeedURL: "https://acme.org/feed"}, discovery.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.org/news/one", "https://acme.org/news/two"}, links)
}

func TestFeedSourceFetchFailure(t *testing.T) {
	t.Parallel()

	src := NewFeedSource(stubFetcher{err: fmt.Errorf("%w: 503", domain.ErrSourceUnavailable)}, nil)
	_, err := src.Discover(context.Background(), domain.Organization{NewsFeedURL: "https://acme.org/news"}, discovery.Request{})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, discovery.SeverityHard, discovery.Classify(err))
}

func TestFeedSourceNotApplicableWithoutURL(t *testing.T) {
	t.Parallel()

	assert.False(t, NewFeedSource(stubFetcher{}, nil).Applies(domain.Organization{Name: "Acme"}))
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(srv.Client())

	body, ct, err := fetcher.Fetch(context.Background(), srv.URL+"/news")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
	assert.Equal(t, "text/html", ct)

	_, _, err = fetcher.Fetch(context.Background(), srv.URL+"/missing")
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable), "got %v", err)
}
