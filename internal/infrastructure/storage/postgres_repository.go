// Package storage persists organizations, discovery batches and articles in Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var batchColumns = []string{
	"id", "organization_id", "status", "timeframe_days", "discovered_urls",
	"total_urls", "processed_urls", "successful_urls", "failed_urls", "source_counts",
	"error", "started_at", "discovered_at", "processing_started_at", "completed_at",
}

// PostgresRepository implements the ingestion store on Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.IngestionStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrganization loads one organization or returns domain.ErrNotFound.
func (r *PostgresRepository) GetOrganization(ctx context.Context, id string) (domain.Organization, error) {
	query, args, err := psql.Select("id", "name", "website", "news_feed_url", "tags").
		From("organizations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Organization{}, fmt.Errorf("build query: %w", err)
	}

	org, err := scanOrganization(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Organization{}, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Organization{}, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations returns every organization ordered by name.
func (r *PostgresRepository) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	query, args, err := psql.Select("id", "name", "website", "news_feed_url", "tags").
		From("organizations").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return orgs, nil
}

// ArticleExists reports whether url was already ingested for orgID.
func (r *PostgresRepository) ArticleExists(ctx context.Context, orgID, url string) (bool, error) {
	query, args, err := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("articles").
		Where(sq.Eq{"organization_id": orgID, "url": url}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check article: %w", err)
	}
	return exists, nil
}

// FindArticleURLs returns the subset of urls already ingested for orgID.
func (r *PostgresRepository) FindArticleURLs(ctx context.Context, orgID string, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(urls) == 0 {
		return result, nil
	}

	query, args, err := findURLsQuery(orgID, urls).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[u] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

func findURLsQuery(orgID string, urls []string) sq.SelectBuilder {
	return psql.Select("url").
		From("articles").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.Expr("url = ANY(?)", pq.StringArray(urls)))
}

// CreateArticle inserts article. A duplicate (organization, url) is domain.ErrPersistenceConflict.
func (r *PostgresRepository) CreateArticle(ctx context.Context, a domain.Article) error {
	query, args, err := insertArticleQuery(a).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("article %s: %w", a.URL, domain.ErrPersistenceConflict)
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func insertArticleQuery(a domain.Article) sq.InsertBuilder {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return psql.Insert("articles").
		Columns("id", "organization_id", "batch_id", "url", "title", "summary", "content", "author",
			"published_at", "sentiment", "content_type", "relevance", "classification_reasoning",
			"validation_reasons", "status", "created_at").
		Values(a.ID, a.OrganizationID, nullString(a.BatchID), a.URL, a.Title, a.Summary, a.Content, a.Author,
			nullTime(a.PublishedAt), string(a.Sentiment), string(a.ContentType), string(a.Relevance),
			a.ClassificationReasoning, pq.StringArray(nonNil(a.ValidationReasons)), string(a.Status), createdAt)
}

// CreateBatch inserts a new discovery batch.
func (r *PostgresRepository) CreateBatch(ctx context.Context, b domain.DiscoveryBatch) error {
	counts, err := marshalCounts(b.SourceCounts)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("discovery_batches").
		Columns(batchColumns...).
		Values(b.ID, b.OrganizationID, string(b.Status), b.TimeframeDays, pq.StringArray(nonNil(b.DiscoveredURLs)),
			b.TotalURLs, b.ProcessedURLs, b.SuccessfulURLs, b.FailedURLs, counts,
			nullString(b.Error), b.StartedAt, nullTime(b.DiscoveredAt), nullTime(b.ProcessingStartedAt), nullTime(b.CompletedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// UpdateBatch applies the non-nil fields of update to batch id.
func (r *PostgresRepository) UpdateBatch(ctx context.Context, id string, update domain.BatchUpdate) error {
	clauses, err := batchUpdateClauses(update)
	if err != nil {
		return err
	}
	if len(clauses) == 0 {
		return nil
	}

	query, args, err := psql.Update("discovery_batches").
		SetMap(clauses).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func batchUpdateClauses(u domain.BatchUpdate) (map[string]any, error) {
	clauses := map[string]any{}
	if u.Status != nil {
		clauses["status"] = string(*u.Status)
	}
	if u.DiscoveredURLs != nil {
		clauses["discovered_urls"] = pq.StringArray(u.DiscoveredURLs)
	}
	if u.TotalURLs != nil {
		clauses["total_urls"] = *u.TotalURLs
	}
	if u.ProcessedURLs != nil {
		clauses["processed_urls"] = *u.ProcessedURLs
	}
	if u.SuccessfulURLs != nil {
		clauses["successful_urls"] = *u.SuccessfulURLs
	}
	if u.FailedURLs != nil {
		clauses["failed_urls"] = *u.FailedURLs
	}
	if u.SourceCounts != nil {
		counts, err := marshalCounts(u.SourceCounts)
		if err != nil {
			return nil, err
		}
		clauses["source_counts"] = counts
	}
	if u.Error != nil {
		clauses["error"] = nullString(*u.Error)
	}
	if u.DiscoveredAt != nil {
		clauses["discovered_at"] = *u.DiscoveredAt
	}
	if u.ProcessingStartedAt != nil {
		clauses["processing_started_at"] = *u.ProcessingStartedAt
	}
	if u.CompletedAt != nil {
		clauses["completed_at"] = *u.CompletedAt
	}
	return clauses, nil
}

// GetBatch loads a batch or returns domain.ErrNotFound.
func (r *PostgresRepository) GetBatch(ctx context.Context, id string) (domain.DiscoveryBatch, error) {
	query, args, err := psql.Select(batchColumns...).
		From("discovery_batches").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.DiscoveryBatch{}, fmt.Errorf("build query: %w", err)
	}

	var (
		b                                  domain.DiscoveryBatch
		status                             string
		urls                               pq.StringArray
		counts                             []byte
		batchErr                           sql.NullString
		discovered, processingStarted, end sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&b.ID, &b.OrganizationID, &status, &b.TimeframeDays, &urls,
		&b.TotalURLs, &b.ProcessedURLs, &b.SuccessfulURLs, &b.FailedURLs, &counts,
		&batchErr, &b.StartedAt, &discovered, &processingStarted, &end,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DiscoveryBatch{}, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.DiscoveryBatch{}, fmt.Errorf("get batch: %w", err)
	}

	b.Status = domain.BatchStatus(status)
	b.DiscoveredURLs = []string(urls)
	b.Error = batchErr.String
	b.DiscoveredAt = timePtr(discovered)
	b.ProcessingStartedAt = timePtr(processingStarted)
	b.CompletedAt = timePtr(end)
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &b.SourceCounts); err != nil {
			return domain.DiscoveryBatch{}, fmt.Errorf("decode source counts: %w", err)
		}
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (domain.Organization, error) {
	var (
		org  domain.Organization
		tags pq.StringArray
	)
	if err := row.Scan(&org.ID, &org.Name, &org.Website, &org.NewsFeedURL, &tags); err != nil {
		return domain.Organization{}, err
	}
	org.Tags = []string(tags)
	return org, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func marshalCounts(counts map[string]int) (string, error) {
	if counts == nil {
		counts = map[string]int{}
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("encode source counts: %w", err)
	}
	return string(raw), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
