package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/executor"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/validation"
)

// Extractor returns structured article data keyed by URL.
type Extractor interface {
	Extract(ctx context.Context, urls []string, hint string) (map[string]domain.ExtractedArticle, error)
}

// ArticleValidator screens and classifies one extracted article.
type ArticleValidator interface {
	Validate(ctx context.Context, c validation.Candidate) validation.Result
}

// URLGuard rejects URLs that must not be fetched.
type URLGuard interface {
	ValidateURL(rawURL string) error
}

// Sanitizer strips markup from extracted text.
type Sanitizer interface {
	Sanitize(raw string) string
}

// LifecycleDeps wires the collaborators of the lifecycle manager.
type LifecycleDeps struct {
	Store      ports.IngestionStore
	Discoverer *Discoverer
	Extractor  Extractor
	Validator  ArticleValidator
	Guard      URLGuard
	Sanitizer  Sanitizer
	Notifier   ports.Notifier
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

// BatchReport summarises one processed batch.
type BatchReport struct {
	Organization domain.Organization
	Batch        domain.DiscoveryBatch
	Items        []domain.ItemResult
}

// LifecycleManager drives discovery batches from ready_for_processing to a terminal state.
type LifecycleManager struct {
	store      ports.IngestionStore
	discoverer *Discoverer
	extractor  Extractor
	validator  ArticleValidator
	guard      URLGuard
	sanitizer  Sanitizer
	notifier   ports.Notifier
	metrics    ports.Metrics
	exec       executor.Config
	logger     *slog.Logger
	batches    batchWriter
	newID      func() string
}

// NewLifecycleManager constructs the manager. Nil Guard, Sanitizer and Notifier are skipped.
func NewLifecycleManager(deps LifecycleDeps, exec executor.Config) *LifecycleManager {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := func() time.Time { return time.Now().UTC() }
	return &LifecycleManager{
		store:      deps.Store,
		discoverer: deps.Discoverer,
		extractor:  deps.Extractor,
		validator:  deps.Validator,
		guard:      deps.Guard,
		sanitizer:  deps.Sanitizer,
		notifier:   deps.Notifier,
		metrics:    metrics,
		exec:       exec,
		logger:     logger,
		batches:    batchWriter{store: deps.Store, metrics: metrics, now: now},
		newID:      uuid.NewString,
	}
}

// ProcessBatch runs every discovered URL of batchID through extraction, validation and
// persistence, then moves the batch to completed (or failed when interrupted).
func (m *LifecycleManager) ProcessBatch(ctx context.Context, batchID string) (BatchReport, error) {
	batch, err := m.store.GetBatch(ctx, batchID)
	if err != nil {
		return BatchReport{}, fmt.Errorf("load batch: %w", err)
	}
	org, err := m.store.GetOrganization(ctx, batch.OrganizationID)
	if err != nil {
		return BatchReport{}, fmt.Errorf("load organization for batch %s: %w", batchID, err)
	}
	return m.process(ctx, org, batch)
}

func (m *LifecycleManager) process(ctx context.Context, org domain.Organization, batch domain.DiscoveryBatch) (BatchReport, error) {
	report := BatchReport{Organization: org}
	logger := m.logger.With("org", org.Name, "batch_id", batch.ID)

	startedAt := m.batches.now()
	if err := m.batches.transition(ctx, &batch, domain.BatchProcessing, domain.BatchUpdate{
		ProcessingStartedAt: &startedAt,
	}); err != nil {
		report.Batch = batch
		return report, err
	}

	urls := batch.DiscoveredURLs
	logger.Info("processing batch", "urls", len(urls))

	progress := func(completed, total int, current *string) {
		if current != nil {
			logger.Debug("batch progress", "completed", completed, "total", total, "url", *current)
		}
	}
	process := func(ctx context.Context, u string) (domain.ItemResult, error) {
		return m.processURL(ctx, org, batch.ID, u), nil
	}

	outcomes := executor.Run(ctx, m.exec, urls, process, progress)
	if _, skipped := executor.Partition(outcomes); len(skipped) > 0 {
		logger.Warn("items not processed", "count", len(skipped), "error", skipped[0].Err)
	}

	report.Items = make([]domain.ItemResult, len(outcomes))
	var succeeded, failed int
	for i, o := range outcomes {
		item := o.Result
		if o.Err != nil {
			item = domain.ItemResult{URL: o.Item, Status: domain.ItemError, Message: o.Err.Error()}
		}
		report.Items[i] = item
		m.metrics.RecordItem(item.Status)
		if item.Status == domain.ItemError {
			failed++
		} else {
			succeeded++
		}
	}

	final := domain.BatchUpdate{
		ProcessedURLs:  ptr(len(outcomes)),
		SuccessfulURLs: ptr(succeeded),
		FailedURLs:     ptr(failed),
		CompletedAt:    ptr(m.batches.now()),
	}
	next := domain.BatchCompleted
	if err := ctx.Err(); err != nil {
		next = domain.BatchFailed
		final.Error = ptr("interrupted: " + err.Error())
	}
	if err := m.batches.transition(context.WithoutCancel(ctx), &batch, next, final); err != nil {
		report.Batch = batch
		return report, err
	}
	report.Batch = batch

	logger.Info("batch finished",
		"status", batch.Status,
		"processed", batch.ProcessedURLs,
		"successful", batch.SuccessfulURLs,
		"failed", batch.FailedURLs,
	)
	m.notify(context.WithoutCancel(ctx), report)
	return report, nil
}

// processURL never returns an error: every failure becomes an error outcome with a message.
func (m *LifecycleManager) processURL(ctx context.Context, org domain.Organization, batchID, rawURL string) domain.ItemResult {
	item := domain.ItemResult{URL: rawURL}
	fail := func(format string, args ...any) domain.ItemResult {
		item.Status = domain.ItemError
		item.Message = fmt.Sprintf(format, args...)
		return item
	}

	if m.guard != nil {
		if err := m.guard.ValidateURL(rawURL); err != nil {
			return fail("%v", err)
		}
	}

	exists, err := m.store.ArticleExists(ctx, org.ID, rawURL)
	if err != nil {
		return fail("check existing article: %v", err)
	}
	if exists {
		item.Status = domain.ItemDuplicate
		item.Message = "already ingested"
		return item
	}

	started := time.Now()
	results, err := m.extractor.Extract(ctx, []string{rawURL}, org.Name)
	if err != nil {
		m.metrics.RecordExtraction(extractionLabel(err), time.Since(started))
		return fail("extract: %v", err)
	}
	extracted, ok := results[rawURL]
	if !ok {
		m.metrics.RecordExtraction("empty", time.Since(started))
		return fail("extract: %v: no result for url", domain.ErrExtractionFailed)
	}
	m.metrics.RecordExtraction("ok", time.Since(started))

	extracted = m.clean(extracted)
	verdict := m.validator.Validate(ctx, validation.Candidate{
		URL:         rawURL,
		OrgName:     org.Name,
		Title:       extracted.Title,
		Summary:     extracted.Summary,
		Content:     extracted.Content,
		PublishedAt: extracted.PublishedAt,
	})
	m.metrics.RecordValidation(verdict.IsValid)

	article := buildArticle(m.newID(), org.ID, batchID, rawURL, extracted, verdict)
	if err := m.store.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, domain.ErrPersistenceConflict) {
			item.Status = domain.ItemDuplicate
			item.Message = "already ingested"
			return item
		}
		return fail("persist article: %v", err)
	}

	item.ArticleID = article.ID
	if !verdict.IsValid {
		return fail("rejected: %s", strings.Join(verdict.Reasons, "; "))
	}
	item.Status = domain.ItemSuccess
	item.Message = strings.Join(verdict.Reasons, "; ")
	return item
}

func (m *LifecycleManager) clean(a domain.ExtractedArticle) domain.ExtractedArticle {
	if m.sanitizer == nil {
		return a
	}
	a.Title = m.sanitizer.Sanitize(a.Title)
	a.Summary = m.sanitizer.Sanitize(a.Summary)
	a.Content = m.sanitizer.Sanitize(a.Content)
	a.Author = m.sanitizer.Sanitize(a.Author)
	return a
}

func buildArticle(id, orgID, batchID, rawURL string, e domain.ExtractedArticle, v validation.Result) domain.Article {
	status := domain.ArticleDraft
	if !v.IsValid {
		status = domain.ArticleRejected
	}
	var published *time.Time
	if t, ok := validation.ParsePublished(e.PublishedAt); ok {
		published = &t
	}
	return domain.Article{
		ID:                      id,
		OrganizationID:          orgID,
		BatchID:                 batchID,
		URL:                     rawURL,
		Title:                   e.Title,
		Summary:                 e.Summary,
		Content:                 e.Content,
		Author:                  e.Author,
		PublishedAt:             published,
		Sentiment:               v.Sentiment,
		ContentType:             v.ContentType,
		Relevance:               v.Relevance,
		ClassificationReasoning: v.Reasoning,
		ValidationReasons:       v.Reasons,
		Status:                  status,
		CreatedAt:               time.Now().UTC(),
	}
}

func extractionLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrExtractionTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}

func (m *LifecycleManager) notify(ctx context.Context, report BatchReport) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.PublishBatchSummary(ctx, BuildSummary(report)); err != nil {
		m.logger.Warn("publish batch summary", "batch_id", report.Batch.ID, "error", err)
	}
}

// BuildSummary renders a short plain-text report of a processed batch.
func BuildSummary(report BatchReport) string {
	counts := map[domain.ItemStatus]int{}
	for _, item := range report.Items {
		counts[item.Status]++
	}

	b := report.Batch
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: batch %s %s\n", report.Organization.Name, b.ID, b.Status)
	fmt.Fprintf(&sb, "processed %d, successful %d, failed %d\n", b.ProcessedURLs, b.SuccessfulURLs, b.FailedURLs)
	fmt.Fprintf(&sb, "new %d, duplicate %d, error %d", counts[domain.ItemSuccess], counts[domain.ItemDuplicate], counts[domain.ItemError])
	if b.Error != "" {
		fmt.Fprintf(&sb, "\nerror: %s", b.Error)
	}
	return sb.String()
}

// Run discovers and processes each organization in turn.
// Failures for one organization are logged and do not stop the others.
func (m *LifecycleManager) Run(ctx context.Context, orgs []domain.Organization, timeframeDays int) ([]BatchReport, error) {
	if m.discoverer == nil {
		return nil, fmt.Errorf("lifecycle manager has no discoverer")
	}

	var (
		reports []BatchReport
		errs    []error
	)
	for i, org := range orgs {
		if i > 0 {
			if err := sleepCtx(ctx, m.discoverer.CourtesyDelay()); err != nil {
				errs = append(errs, err)
				break
			}
		}

		res, err := m.discoverer.DiscoverOrganization(ctx, org, timeframeDays)
		if err != nil {
			m.logger.Error("discover organization", "org", org.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		if res.Batch.Status != domain.BatchReadyForProcessing {
			reports = append(reports, BatchReport{Organization: org, Batch: res.Batch})
			continue
		}

		report, err := m.process(ctx, org, res.Batch)
		if err != nil {
			m.logger.Error("process batch", "org", org.Name, "batch_id", res.Batch.ID, "error", err)
			errs = append(errs, err)
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// RunAll runs every stored organization.
func (m *LifecycleManager) RunAll(ctx context.Context, timeframeDays int) ([]BatchReport, error) {
	orgs, err := m.store.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return m.Run(ctx, orgs, timeframeDays)
}
