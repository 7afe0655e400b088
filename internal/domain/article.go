package domain

import "time"

// Organization is a tracked entity whose coverage the pipeline ingests.
type Organization struct {
	ID          string
	Name        string
	Website     string
	NewsFeedURL string
	Tags        []string
}

// ArticleStatus enumerates the curation state of an ingested article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleRejected  ArticleStatus = "rejected"
)

// Sentiment is the classifier's tone judgement.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ContentType describes what kind of page an article came from.
type ContentType string

const (
	ContentNews         ContentType = "news"
	ContentPressRelease ContentType = "press_release"
	ContentBlogPost     ContentType = "blog_post"
	ContentListView     ContentType = "list_view"
	ContentOther        ContentType = "other"
)

// Relevance is how strongly a piece is about the organization.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// ParseSentiment normalizes free-form classifier output. ok is false for values outside the set.
func ParseSentiment(v string) (Sentiment, bool) {
	switch s := Sentiment(normalizeEnum(v)); s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return s, true
	default:
		return "", false
	}
}

// ParseContentType normalizes free-form classifier output. ok is false for values outside the set.
func ParseContentType(v string) (ContentType, bool) {
	switch c := ContentType(normalizeEnum(v)); c {
	case ContentNews, ContentPressRelease, ContentBlogPost, ContentListView, ContentOther:
		return c, true
	default:
		return "", false
	}
}

// ParseRelevance normalizes free-form classifier output. ok is false for values outside the set.
func ParseRelevance(v string) (Relevance, bool) {
	switch r := Relevance(normalizeEnum(v)); r {
	case RelevanceHigh, RelevanceMedium, RelevanceLow:
		return r, true
	default:
		return "", false
	}
}

// Classification is the external judgement attached to a candidate article.
type Classification struct {
	Sentiment   Sentiment
	ContentType ContentType
	Relevance   Relevance
	Reasoning   string
	Issues      []string
}

// ExtractedArticle holds the structured fields returned by the extraction service.
type ExtractedArticle struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_date"`
}

// Article is one URL's ingested content unit. URL is unique per organization.
type Article struct {
	ID                      string
	OrganizationID          string
	BatchID                 string
	URL                     string
	Title                   string
	Summary                 string
	Content                 string
	Author                  string
	PublishedAt             *time.Time
	Sentiment               Sentiment
	ContentType             ContentType
	Relevance               Relevance
	ClassificationReasoning string
	ValidationReasons       []string
	Status                  ArticleStatus
	CreatedAt               time.Time
}
