// Package validation screens extracted articles and combines classifier signals into
// an accept/reject decision with an audit trail of reasons.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsHarvester/internal/domain"
)

// Candidate is one extracted article awaiting a decision.
type Candidate struct {
	URL         string
	OrgName     string
	Title       string
	Summary     string
	Content     string
	PublishedAt string
}

// ClassificationInput is what the classification service sees. Content is already truncated.
type ClassificationInput struct {
	Content     string
	Title       string
	Summary     string
	OrgName     string
	PublishedAt string
	URL         string
}

// Classifier is the external relevance/sentiment/type judgement service.
type Classifier interface {
	Classify(ctx context.Context, in ClassificationInput) (domain.Classification, error)
}

// Result is the validator's decision.
type Result struct {
	IsValid     bool
	Reasons     []string
	Sentiment   domain.Sentiment
	ContentType domain.ContentType
	Relevance   domain.Relevance
	Reasoning   string
	Issues      []string
}

// Config tunes the heuristic stages.
type Config struct {
	PublishedAfter     time.Time
	MinContentLength   int
	MaxClassifierChars int
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		PublishedAfter:     time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		MinContentLength:   200,
		MaxClassifierChars: 8000,
	}
}

// Validator runs error detection, the date window, classification and the combination rule.
type Validator struct {
	classifier Classifier
	cfg        Config
	logger     *slog.Logger
}

// NewValidator wires a classifier with thresholds.
func NewValidator(classifier Classifier, cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{classifier: classifier, cfg: cfg, logger: logger}
}

// Validate decides whether c is worth ingesting. It never returns an error: classifier failures
// and every other ambiguity on the classification path resolve to rejection.
func (v *Validator) Validate(ctx context.Context, c Candidate) Result {
	if reason, garbage := detectGarbage(c, v.cfg.MinContentLength); garbage {
		return Result{IsValid: false, Reasons: []string{reason}}
	}

	dateReason, dateOK := checkDateWindow(c.PublishedAt, v.cfg.PublishedAfter)
	if !dateOK {
		return Result{IsValid: false, Reasons: []string{dateReason}}
	}

	if v.classifier == nil {
		return Result{IsValid: false, Reasons: []string{
			fmt.Sprintf("%v: no classifier configured; %s", domain.ErrClassification, MarkerSafetyDefault),
		}}
	}

	cls, err := v.classify(ctx, c)
	if err != nil {
		v.logger.Warn("classification failed, rejecting", "url", c.URL, "error", err)
		return Result{IsValid: false, Reasons: []string{
			fmt.Sprintf("classification error: %v; %s", err, MarkerSafetyDefault),
		}}
	}

	return combine(cls, dateOK, dateReason)
}

func (v *Validator) classify(ctx context.Context, c Candidate) (cls domain.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: classifier panicked: %v", domain.ErrClassification, r)
		}
	}()
	return v.classifier.Classify(ctx, ClassificationInput{
		Content:     truncate(c.Content, v.cfg.MaxClassifierChars),
		Title:       c.Title,
		Summary:     c.Summary,
		OrgName:     c.OrgName,
		PublishedAt: c.PublishedAt,
		URL:         c.URL,
	})
}

// combine collects every failing condition so the reasons list is complete.
func combine(cls domain.Classification, dateOK bool, dateReason string) Result {
	res := Result{
		Sentiment:   cls.Sentiment,
		ContentType: cls.ContentType,
		Relevance:   cls.Relevance,
		Reasoning:   cls.Reasoning,
		Issues:      cls.Issues,
	}

	if cls.Sentiment == domain.SentimentNegative {
		res.Reasons = append(res.Reasons, "negative sentiment")
	}
	if !dateOK {
		res.Reasons = append(res.Reasons, dateReason)
	}
	if cls.ContentType == domain.ContentListView {
		res.Reasons = append(res.Reasons, "content is a list view, not an article")
	}
	if cls.Relevance == domain.RelevanceLow {
		res.Reasons = append(res.Reasons, "low relevance to organization")
	}
	isNewsLike := cls.ContentType == domain.ContentNews || cls.ContentType == domain.ContentPressRelease
	if !isNewsLike && cls.Relevance != domain.RelevanceHigh {
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("content type %s requires high relevance, got %s", cls.ContentType, cls.Relevance))
	}

	res.IsValid = len(res.Reasons) == 0
	if res.IsValid {
		res.Reasons = []string{fmt.Sprintf("accepted: %s, %s relevance, %s sentiment",
			cls.ContentType, cls.Relevance, cls.Sentiment)}
	}
	for _, issue := range cls.Issues {
		res.Reasons = append(res.Reasons, "issue: "+issue)
	}

	return res
}
