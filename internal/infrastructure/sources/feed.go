package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// MaxFeedLinks caps the links taken from a single curated page.
const MaxFeedLinks = 50

var (
	excludedPath = regexp.MustCompile(`(?i)(/(category|categories|tag|tags|topics?|page|archives?|feed|rss|author)(/|$))|\.(xml|rss)$|[?&](page|paged)=`)
	articleShape = regexp.MustCompile(`(?i)/(news|article|articles|story|stories|press|press-releases?|blog|media)(/|-|$)`)
	datedPath    = regexp.MustCompile(`/\d{4}/\d{2}/`)
)

// FeedSource pulls candidate links from an organization's curated news page or RSS/Atom feed.
type FeedSource struct {
	fetcher ports.PageFetcher
	logger  *slog.Logger
}

var _ discovery.Source = (*FeedSource)(nil)

// NewFeedSource wires a page fetcher.
func NewFeedSource(fetcher ports.PageFetcher, logger *slog.Logger) *FeedSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FeedSource{fetcher: fetcher, logger: logger}
}

// Name identifies the source inside the registry.
func (f *FeedSource) Name() string {
	return "feed"
}

// Applies requires a configured news feed URL.
func (f *FeedSource) Applies(org domain.Organization) bool {
	return org.NewsFeedURL != "" && f.fetcher != nil
}

// Discover fetches the feed page and extracts article-shaped links, at most MaxFeedLinks.
func (f *FeedSource) Discover(ctx context.Context, org domain.Organization, _ discovery.Request) ([]string, error) {
	body, contentType, err := f.fetcher.Fetch(ctx, org.NewsFeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", org.NewsFeedURL, err)
	}

	if looksLikeFeed(contentType, body) {
		links, err := parseFeedLinks(body)
		if err == nil {
			f.logger.Debug("parsed syndication feed", "org", org.Name, "links", len(links))
			return links, nil
		}
		f.logger.Debug("feed parse failed, falling back to html", "org", org.Name, "error", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrSourceUnavailable, org.NewsFeedURL, err)
	}
	return ExtractArticleLinks(doc, org.NewsFeedURL), nil
}

func looksLikeFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<rss")) || bytes.HasPrefix(head, []byte("<feed"))
}

func parseFeedLinks(body []byte) ([]string, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	links := make([]string, 0, min(len(feed.Items), MaxFeedLinks))
	for _, item := range feed.Items {
		if item == nil || !isAbsoluteHTTP(item.Link) {
			continue
		}
		if _, ok := seen[item.Link]; ok {
			continue
		}
		seen[item.Link] = struct{}{}
		links = append(links, item.Link)
		if len(links) == MaxFeedLinks {
			break
		}
	}
	return links, nil
}

// ExtractArticleLinks returns the absolute links in doc that look like individual articles.
func ExtractArticleLinks(doc *goquery.Document, pageURL string) []string {
	seen := map[string]struct{}{pageURL: {}}
	var links []string

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !IsArticleLink(href) {
			return true
		}
		if _, ok := seen[href]; ok {
			return true
		}
		seen[href] = struct{}{}
		links = append(links, href)
		return len(links) < MaxFeedLinks
	})

	return links
}

// IsArticleLink applies the structural heuristics: absolute http(s), not a listing or feed
// path, and either a news-like segment, a dated path or a path at least two segments deep.
func IsArticleLink(href string) bool {
	if !isAbsoluteHTTP(href) {
		return false
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}

	pathAndQuery := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		pathAndQuery += "?" + parsed.RawQuery
	}
	if excludedPath.MatchString(pathAndQuery) {
		return false
	}

	if articleShape.MatchString(parsed.Path) || datedPath.MatchString(parsed.Path) {
		return true
	}
	return pathDepth(parsed.Path) >= 2
}

func isAbsoluteHTTP(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func pathDepth(p string) int {
	depth := 0
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
