package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// DefaultCourtesyDelay separates organizations in bulk runs.
const DefaultCourtesyDelay = 2 * time.Second

// DiscovererConfig controls bulk discovery pacing.
type DiscovererConfig struct {
	CourtesyDelay time.Duration
}

// DiscoveryResult is the outcome of discovering one organization.
type DiscoveryResult struct {
	Organization domain.Organization
	Batch        domain.DiscoveryBatch
	Reports      []discovery.Report
}

// Discoverer runs the applicable sources for an organization and records the new URLs on a batch.
type Discoverer struct {
	registry *discovery.Registry
	store    ports.IngestionStore
	metrics  ports.Metrics
	cfg      DiscovererConfig
	logger   *slog.Logger
	batches  batchWriter
	newID    func() string
}

// NewDiscoverer wires the source registry with the store. A non-positive CourtesyDelay
// falls back to DefaultCourtesyDelay.
func NewDiscoverer(registry *discovery.Registry, store ports.IngestionStore, metrics ports.Metrics, cfg DiscovererConfig, logger *slog.Logger) *Discoverer {
	if cfg.CourtesyDelay <= 0 {
		cfg.CourtesyDelay = DefaultCourtesyDelay
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := func() time.Time { return time.Now().UTC() }
	return &Discoverer{
		registry: registry,
		store:    store,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		batches:  batchWriter{store: store, metrics: metrics, now: now},
		newID:    uuid.NewString,
	}
}

// CourtesyDelay returns the pause applied between organizations.
func (d *Discoverer) CourtesyDelay() time.Duration {
	return d.cfg.CourtesyDelay
}

// DiscoverOrganization creates a batch for org and fills it with URLs not yet ingested.
// Only a failure to create the batch is returned as an error; later failures leave the
// batch in the failed state.
func (d *Discoverer) DiscoverOrganization(ctx context.Context, org domain.Organization, timeframeDays int) (DiscoveryResult, error) {
	batch := domain.DiscoveryBatch{
		ID:             d.newID(),
		OrganizationID: org.ID,
		Status:         domain.BatchDiscovering,
		TimeframeDays:  timeframeDays,
		SourceCounts:   map[string]int{},
		StartedAt:      d.batches.now(),
	}
	if err := d.store.CreateBatch(ctx, batch); err != nil {
		return DiscoveryResult{}, fmt.Errorf("create batch for %s: %w", org.Name, err)
	}
	d.metrics.RecordBatchStatus(domain.BatchDiscovering)

	logger := d.logger.With("org", org.Name, "batch_id", batch.ID)
	result := DiscoveryResult{Organization: org}

	reports, lists := d.runSources(ctx, org, discovery.Request{TimeframeDays: timeframeDays})
	result.Reports = reports

	candidates := unionCandidates(reports, lists)
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}

	existing, err := d.store.FindArticleURLs(ctx, org.ID, urls)
	if err != nil {
		if ferr := d.batches.fail(ctx, &batch, fmt.Errorf("check existing urls: %w", err)); ferr != nil {
			logger.Error("mark batch failed", "error", ferr)
		}
		logger.Error("discovery failed", "error", err)
		result.Batch = batch
		return result, nil
	}

	fresh := make([]string, 0, len(urls))
	for _, u := range urls {
		if !existing[u] {
			fresh = append(fresh, u)
		}
	}

	counts := make(map[string]int, len(reports))
	for _, r := range reports {
		counts[r.Source] = r.Count
	}

	at := d.batches.now()
	err = d.batches.transition(ctx, &batch, domain.BatchReadyForProcessing, domain.BatchUpdate{
		DiscoveredURLs: fresh,
		TotalURLs:      ptr(len(fresh)),
		SourceCounts:   counts,
		DiscoveredAt:   &at,
	})
	if err != nil {
		if ferr := d.batches.fail(ctx, &batch, err); ferr != nil {
			logger.Error("mark batch failed", "error", ferr)
		}
		logger.Error("record discovered urls", "error", err)
		result.Batch = batch
		return result, nil
	}

	logger.Info("discovery finished",
		"candidates", len(urls),
		"already_ingested", len(urls)-len(fresh),
		"new", len(fresh),
	)
	result.Batch = batch
	return result, nil
}

// DiscoverOrganizations discovers each organization in turn, pausing CourtesyDelay between them.
// Batch-creation failures are collected and returned together after every organization ran.
func (d *Discoverer) DiscoverOrganizations(ctx context.Context, orgs []domain.Organization, timeframeDays int) ([]DiscoveryResult, error) {
	var (
		results []DiscoveryResult
		errs    []error
	)
	for i, org := range orgs {
		if i > 0 {
			if err := sleepCtx(ctx, d.cfg.CourtesyDelay); err != nil {
				errs = append(errs, err)
				break
			}
		}
		res, err := d.DiscoverOrganization(ctx, org, timeframeDays)
		if err != nil {
			d.logger.Error("discover organization", "org", org.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (d *Discoverer) runSources(ctx context.Context, org domain.Organization, req discovery.Request) ([]discovery.Report, [][]string) {
	if d.registry == nil {
		return nil, nil
	}
	sources := d.registry.Applicable(org)
	reports := make([]discovery.Report, len(sources))
	lists := make([][]string, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			urls, err := discover(ctx, src, org, req)
			reports[i] = discovery.Report{Source: src.Name(), Count: len(urls), Err: err}
			lists[i] = urls
			return nil
		})
	}
	_ = g.Wait()

	for i := range reports {
		r := &reports[i]
		d.metrics.RecordDiscovered(r.Source, r.Count)
		if r.Err == nil {
			continue
		}
		r.Severity = discovery.Classify(r.Err)
		d.metrics.RecordSourceFailure(r.Source, r.Severity.String())
		level := slog.LevelError
		if r.Severity == discovery.SeveritySoft {
			level = slog.LevelWarn
		}
		d.logger.Log(ctx, level, "discovery source failed", "org", org.Name, "source", r.Source, "severity", r.Severity, "error", r.Err)
	}
	return reports, lists
}

func discover(ctx context.Context, src discovery.Source, org domain.Organization, req discovery.Request) (urls []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			urls, err = nil, fmt.Errorf("%w: source %s panicked: %v", domain.ErrSourceUnavailable, src.Name(), r)
		}
	}()
	return src.Discover(ctx, org, req)
}

// unionCandidates merges the per-source lists, keeping the first source that produced each URL.
func unionCandidates(reports []discovery.Report, lists [][]string) []domain.CandidateURL {
	seen := map[string]struct{}{}
	var out []domain.CandidateURL
	for i, list := range lists {
		for _, u := range list {
			if u == "" {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, domain.CandidateURL{URL: u, Source: reports[i].Source})
		}
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordDiscovered(string, int)           {}
func (nopMetrics) RecordSourceFailure(string, string)     {}
func (nopMetrics) RecordBatchStatus(domain.BatchStatus)   {}
func (nopMetrics) RecordItem(domain.ItemStatus)           {}
func (nopMetrics) RecordExtraction(string, time.Duration) {}
func (nopMetrics) RecordValidation(bool)                  {}
