// Package sources holds the discovery strategies and the HTTP clients behind them.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/infrastructure/httpjson"
	"NewsHarvester/internal/ports"
)

const userAgent = "NewsHarvester/1.0"

// maxPageBytes bounds the body read from a curated page.
const maxPageBytes = 5 << 20

// classifyStatus maps upstream HTTP failures onto discovery sentinels.
func classifyStatus(service string, err error) error {
	switch httpjson.StatusCode(err) {
	case 0:
		return fmt.Errorf("%s: %w: %v", service, domain.ErrSourceUnavailable, err)
	case http.StatusPaymentRequired, http.StatusTooManyRequests, 432:
		return fmt.Errorf("%s: %w: %v", service, domain.ErrQuotaExhausted, err)
	default:
		return fmt.Errorf("%s: %w: %v", service, domain.ErrSourceUnavailable, err)
	}
}

// SearchClient queries a news-scoped web search API.
type SearchClient struct {
	api        *httpjson.Client
	maxResults int
}

var _ ports.SearchProvider = (*SearchClient)(nil)

// NewSearchClient builds a client for the search endpoint.
func NewSearchClient(api *httpjson.Client, maxResults int) *SearchClient {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearchClient{api: api, maxResults: maxResults}
}

type searchRequest struct {
	Query      string `json:"query"`
	Topic      string `json:"topic"`
	Days       int    `json:"days"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
}

// Search runs one query restricted to the last recencyDays days.
func (c *SearchClient) Search(ctx context.Context, query string, recencyDays int) ([]ports.SearchHit, error) {
	var resp searchResponse
	err := c.api.Post(ctx, "/search", searchRequest{
		Query:      query,
		Topic:      "news",
		Days:       recencyDays,
		MaxResults: c.maxResults,
	}, &resp)
	if err != nil {
		return nil, classifyStatus("search", err)
	}

	hits := make([]ports.SearchHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, ports.SearchHit{URL: r.URL, Title: r.Title})
	}
	return hits, nil
}

// MapClient calls a site-mapping service that lists URLs under a root.
type MapClient struct {
	api   *httpjson.Client
	limit int
}

var _ ports.SiteMapper = (*MapClient)(nil)

// NewMapClient builds a client for the mapping endpoint.
func NewMapClient(api *httpjson.Client, limit int) *MapClient {
	if limit <= 0 {
		limit = 100
	}
	return &MapClient{api: api, limit: limit}
}

type mapRequest struct {
	URL    string `json:"url"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit"`
}

type mapResponse struct {
	Success bool     `json:"success"`
	Links   []string `json:"links"`
	Error   string   `json:"error"`
}

// Map lists candidate URLs under rootURL. HTTP 402 is domain.ErrQuotaExhausted.
func (c *MapClient) Map(ctx context.Context, rootURL, hint string) ([]string, error) {
	var resp mapResponse
	if err := c.api.Post(ctx, "/v1/map", mapRequest{URL: rootURL, Search: hint, Limit: c.limit}, &resp); err != nil {
		return nil, classifyStatus("site map", err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("site map: %w: %s", domain.ErrSourceUnavailable, resp.Error)
	}
	return resp.Links, nil
}

// HTTPFetcher downloads pages with a plain GET.
type HTTPFetcher struct {
	client *http.Client
}

var _ ports.PageFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; nil gets a 20 second timeout client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Fetch returns the body and content type of pageURL. Non-2xx is domain.ErrSourceUnavailable.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: %s returned %s", domain.ErrSourceUnavailable, pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", domain.ErrSourceUnavailable, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
