package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/discovery"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/executor"
	"NewsHarvester/internal/extraction"
	"NewsHarvester/internal/httpapi"
	"NewsHarvester/internal/infrastructure/extractapi"
	"NewsHarvester/internal/infrastructure/httpjson"
	"NewsHarvester/internal/infrastructure/llm"
	"NewsHarvester/internal/infrastructure/scheduler"
	"NewsHarvester/internal/infrastructure/sources"
	"NewsHarvester/internal/infrastructure/storage"
	"NewsHarvester/internal/infrastructure/telegram"
	"NewsHarvester/internal/logging"
	"NewsHarvester/internal/metrics"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/security"
	"NewsHarvester/internal/usecase"
	"NewsHarvester/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *sql.DB
	store      ports.IngestionStore
	discoverer *usecase.Discoverer
	manager    *usecase.LifecycleManager
	registry   *prometheus.Registry
}

// New opens the database and builds every collaborator from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, storage.NewPostgresRepository(db), baseLogger)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return a, nil
}

func build(cfg config.Config, store ports.IngestionStore, baseLogger *slog.Logger) (*Application, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	registry := newSourceRegistry(cfg, baseLogger)

	classifier, err := newClassifier(cfg.Classifier)
	if err != nil {
		// Without a classifier every extracted article is rejected.
		baseLogger.Warn("classifier unavailable", "provider", cfg.Classifier.Provider, "error", err)
	}

	publishedAfter, err := cfg.Validation.PublishedAfterTime()
	if err != nil {
		return nil, err
	}
	validator := validation.NewValidator(classifier, validation.Config{
		PublishedAfter:     publishedAfter,
		MinContentLength:   cfg.Validation.MinContentLength,
		MaxClassifierChars: cfg.Validation.MaxClassifierChars,
	}, baseLogger.With("component", "validation"))

	extractAPI := httpjson.NewClient(cfg.Extraction.Endpoint, httpjson.Options{
		APIKey:            cfg.Extraction.APIKey,
		Timeout:           cfg.Extraction.Timeout,
		RequestsPerSecond: cfg.Extraction.RequestsPerSecond,
	})
	extractor := extraction.NewClient(extractapi.NewService(extractAPI), extraction.Config{
		PollInterval: cfg.Pipeline.PollInterval,
		MaxWait:      cfg.Pipeline.MaxWait,
	}, baseLogger.With("component", "extraction"))

	var notifier ports.Notifier
	if tg := telegram.NewNotifierWithBase(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID,
		cfg.Notifications.Telegram.APIBase); tg.Enabled() {
		notifier = tg
	}

	discoverer := usecase.NewDiscoverer(registry, store, collector, usecase.DiscovererConfig{
		CourtesyDelay: cfg.Pipeline.CourtesyDelay,
	}, baseLogger.With("component", "discovery"))

	manager := usecase.NewLifecycleManager(usecase.LifecycleDeps{
		Store:      store,
		Discoverer: discoverer,
		Extractor:  extractor,
		Validator:  validator,
		Guard:      security.NewURLGuard(cfg.Security.AllowPrivateURLs),
		Sanitizer:  security.NewTextSanitizer(),
		Notifier:   notifier,
		Metrics:    collector,
		Logger:     baseLogger.With("component", "lifecycle"),
	}, executor.Config{
		Concurrency: cfg.Pipeline.Concurrency,
		BatchDelay:  cfg.Pipeline.BatchDelay,
	})

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		discoverer: discoverer,
		manager:    manager,
		registry:   reg,
	}, nil
}

func newSourceRegistry(cfg config.Config, logger *slog.Logger) *discovery.Registry {
	registry := discovery.NewRegistry()

	if cfg.Search.APIKey != "" {
		api := httpjson.NewClient(cfg.Search.Endpoint, httpjson.Options{
			APIKey:            cfg.Search.APIKey,
			RequestsPerSecond: cfg.Search.RequestsPerSecond,
		})
		registry.Register(sources.NewSearchSource(
			sources.NewSearchClient(api, cfg.Search.MaxResults),
			cfg.Search.Windows,
			logger.With("component", "source.search"),
		))
	} else {
		logger.Warn("search source disabled: no api key")
	}

	fetchClient := &http.Client{Timeout: 20 * time.Second}
	if !cfg.Security.AllowPrivateURLs {
		fetchClient = security.NewSafeClient(20 * time.Second)
	}
	registry.Register(sources.NewFeedSource(sources.NewHTTPFetcher(fetchClient), logger.With("component", "source.feed")))

	if cfg.SiteMap.APIKey != "" {
		api := httpjson.NewClient(cfg.SiteMap.Endpoint, httpjson.Options{
			APIKey:            cfg.SiteMap.APIKey,
			RequestsPerSecond: cfg.SiteMap.RequestsPerSecond,
		})
		registry.Register(sources.NewSiteMapSource(
			sources.NewMapClient(api, cfg.SiteMap.Limit),
			logger.With("component", "source.sitemap"),
		))
	} else {
		logger.Warn("sitemap source disabled: no api key")
	}

	return registry
}

func newClassifier(cfg config.ClassifierConfig) (validation.Classifier, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		c, err := llm.NewAnthropicClassifier(llm.AnthropicConfig{
			APIKey:    cfg.Anthropic.APIKey,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			BaseURL:   cfg.Anthropic.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderChatGPT:
		c, err := llm.NewChatGPTClassifier(llm.ChatGPTConfig{
			Endpoint:          cfg.ChatGPT.Endpoint,
			Model:             cfg.ChatGPT.Model,
			APIKey:            cfg.ChatGPT.APIKey,
			RequestsPerSecond: cfg.ChatGPT.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Organizations resolves ids to stored organizations; no ids means all of them.
func (a *Application) Organizations(ctx context.Context, ids []string) ([]domain.Organization, error) {
	if len(ids) == 0 {
		return a.store.ListOrganizations(ctx)
	}
	orgs := make([]domain.Organization, 0, len(ids))
	for _, id := range ids {
		org, err := a.store.GetOrganization(ctx, id)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

// Discover creates ready batches for the given organizations without processing them.
func (a *Application) Discover(ctx context.Context, orgIDs []string, timeframeDays int) ([]usecase.DiscoveryResult, error) {
	orgs, err := a.Organizations(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	return a.discoverer.DiscoverOrganizations(ctx, orgs, a.timeframe(timeframeDays))
}

// ProcessBatch ingests one ready batch.
func (a *Application) ProcessBatch(ctx context.Context, batchID string) (usecase.BatchReport, error) {
	return a.manager.ProcessBatch(ctx, batchID)
}

// Run discovers and processes the given organizations.
func (a *Application) Run(ctx context.Context, orgIDs []string, timeframeDays int) ([]usecase.BatchReport, error) {
	orgs, err := a.Organizations(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	return a.manager.Run(ctx, orgs, a.timeframe(timeframeDays))
}

// Serve runs the periodic scheduler and the operational HTTP endpoint until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.manager, a.cfg.Pipeline.TimeframeDays, a.logger.With("component", "scheduler"))

	srv := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: httpapi.NewRouter(httpapi.RouterDeps{
			Batches: a.store,
			Metrics: metrics.Handler(a.registry),
			Logger:  a.logger.With("component", "http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return errors.Join(sched.Stop(shutdownCtx), srv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func (a *Application) timeframe(days int) int {
	if days > 0 {
		return days
	}
	return a.cfg.Pipeline.TimeframeDays
}
