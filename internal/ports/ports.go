package ports

import (
	"context"
	"time"

	"NewsHarvester/internal/domain"
)

// SearchHit is one result link returned by a search provider.
type SearchHit struct {
	URL   string
	Title string
}

// SearchProvider queries an external news-scoped search index.
type SearchProvider interface {
	Search(ctx context.Context, query string, recencyDays int) ([]SearchHit, error)
}

// PageFetcher downloads a single page body.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (body []byte, contentType string, err error)
}

// SiteMapper lists candidate URLs under a site root. Credit exhaustion is domain.ErrQuotaExhausted.
type SiteMapper interface {
	Map(ctx context.Context, rootURL, hint string) ([]string, error)
}

// IngestionStore persists organizations, discovery batches and ingested articles.
type IngestionStore interface {
	GetOrganization(ctx context.Context, id string) (domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)

	ArticleExists(ctx context.Context, orgID, url string) (bool, error)
	// FindArticleURLs returns the subset of urls already ingested for orgID.
	FindArticleURLs(ctx context.Context, orgID string, urls []string) (map[string]bool, error)
	// CreateArticle returns domain.ErrPersistenceConflict when the URL already exists for the org.
	CreateArticle(ctx context.Context, article domain.Article) error

	CreateBatch(ctx context.Context, batch domain.DiscoveryBatch) error
	UpdateBatch(ctx context.Context, id string, update domain.BatchUpdate) error
	GetBatch(ctx context.Context, id string) (domain.DiscoveryBatch, error)
}

// Notifier streams batch summaries to Telegram or other channels.
type Notifier interface {
	PublishBatchSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Metrics records pipeline observations.
type Metrics interface {
	RecordDiscovered(source string, count int)
	RecordSourceFailure(source, severity string)
	RecordBatchStatus(status domain.BatchStatus)
	RecordItem(status domain.ItemStatus)
	RecordExtraction(result string, duration time.Duration)
	RecordValidation(valid bool)
}
