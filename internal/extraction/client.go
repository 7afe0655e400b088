// Package extraction drives the submit-and-poll protocol of a structured-extraction service
// and maps its results back onto the submitted URLs.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsHarvester/internal/domain"
)

// JobStatus is the lifecycle state of an extraction job on the remote side.
type JobStatus string

const (
	JobSubmitted  JobStatus = "submitted"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Submission is the response to a submit call: either Immediate or Queued.
type Submission interface {
	isSubmission()
}

// Immediate carries results returned synchronously, one per submitted URL in order.
type Immediate struct {
	Results []domain.ExtractedArticle
}

// Queued carries the identifier of an asynchronous job that must be polled.
type Queued struct {
	JobID string
}

func (Immediate) isSubmission() {}
func (Queued) isSubmission()    {}

// PollResult is one observation of an asynchronous job.
type PollResult struct {
	Status  JobStatus
	Results []domain.ExtractedArticle
	Error   string
}

// Service is the remote structured-extraction API.
type Service interface {
	Submit(ctx context.Context, urls []string, hint string) (Submission, error)
	Poll(ctx context.Context, jobID string) (PollResult, error)
}

// Job is the client-side handle of one submission for the duration of its polling cycle.
type Job struct {
	ID      string
	URLs    []string
	Status  JobStatus
	Results []domain.ExtractedArticle
}

// Config sets the polling cadence and the maximum time to wait for a queued job.
type Config struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

// DefaultConfig mirrors the cadence the extraction API documents for small jobs.
func DefaultConfig() Config {
	return Config{PollInterval: 2 * time.Second, MaxWait: 2 * time.Minute}
}

// Client submits URL sets and waits for their structured results.
// It holds no per-job state, so concurrent Extract calls poll independently.
type Client struct {
	service Service
	cfg     Config
	logger  *slog.Logger
}

// NewClient wires the remote service with polling configuration.
func NewClient(service Service, cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{service: service, cfg: cfg, logger: logger}
}

// Extract submits urls with an optional disambiguation hint and returns results keyed by URL.
// URLs the service returned nothing for are absent from the map.
func (c *Client) Extract(ctx context.Context, urls []string, hint string) (map[string]domain.ExtractedArticle, error) {
	if len(urls) == 0 {
		return map[string]domain.ExtractedArticle{}, nil
	}

	sub, err := c.service.Submit(ctx, urls, hint)
	if err != nil {
		return nil, fmt.Errorf("submit extraction: %w", err)
	}

	job := Job{URLs: urls, Status: JobSubmitted}

	switch s := sub.(type) {
	case Immediate:
		job.Status = JobCompleted
		job.Results = s.Results
	case Queued:
		job.ID = s.JobID
		if err := c.await(ctx, &job); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown submission type %T", domain.ErrExtractionFailed, sub)
	}

	return MapResults(job.URLs, job.Results), nil
}

func (c *Client) await(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("%w: queued job without id", domain.ErrExtractionFailed)
	}

	deadline := time.NewTimer(c.cfg.MaxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	job.Status = JobProcessing
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("job %s not finished after %s: %w", job.ID, c.cfg.MaxWait, domain.ErrExtractionTimeout)
		case <-ticker.C:
		}

		res, err := c.service.Poll(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("poll job %s: %w: %v", job.ID, domain.ErrExtractionFailed, err)
		}

		switch res.Status {
		case JobCompleted:
			job.Status = JobCompleted
			job.Results = res.Results
			return nil
		case JobFailed:
			job.Status = JobFailed
			return fmt.Errorf("job %s: %w: %s", job.ID, domain.ErrExtractionFailed, res.Error)
		default:
			c.logger.Debug("extraction job still processing", "job_id", job.ID, "urls", len(job.URLs))
		}
	}
}

// MapResults pairs results with urls by position, ignoring results beyond len(urls).
func MapResults(urls []string, results []domain.ExtractedArticle) map[string]domain.ExtractedArticle {
	mapped := make(map[string]domain.ExtractedArticle, len(results))
	for i, r := range results {
		if i >= len(urls) {
			break
		}
		mapped[urls[i]] = r
	}
	return mapped
}
