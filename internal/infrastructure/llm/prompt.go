// Package llm implements validation.Classifier on top of chat-style language model APIs.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/validation"
)

const systemPrompt = `You review web pages collected for a news monitoring service.
Judge the page for the named organization and answer with ONLY a JSON object:
{"sentiment":"positive|neutral|negative","content_type":"news|press_release|blog_post|list_view|other","relevance":"high|medium|low","reasoning":"one sentence","issues":["..."]}
Use list_view for index, archive or search result pages. Relevance is about the named organization, not the topic in general.`

// BuildPrompt renders the user message sent with every classification request.
func BuildPrompt(in validation.ClassificationInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Organization: %s\n", in.OrgName)
	fmt.Fprintf(&sb, "URL: %s\n", in.URL)
	if in.PublishedAt != "" {
		fmt.Fprintf(&sb, "Published: %s\n", in.PublishedAt)
	}
	fmt.Fprintf(&sb, "Title: %s\n", in.Title)
	if in.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", in.Summary)
	}
	sb.WriteString("\nContent:\n")
	sb.WriteString(in.Content)
	return sb.String()
}

type classificationPayload struct {
	Sentiment   string   `json:"sentiment"`
	ContentType string   `json:"content_type"`
	Relevance   string   `json:"relevance"`
	Reasoning   string   `json:"reasoning"`
	Issues      []string `json:"issues"`
}

// ParseClassification decodes model output, tolerating markdown fences and surrounding prose.
// A value outside the allowed set for any field is an ErrClassification.
func ParseClassification(text string) (domain.Classification, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return domain.Classification{}, fmt.Errorf("%w: response is not JSON: %q", domain.ErrClassification, preview(cleaned, 50))
	}

	var p classificationPayload
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &p); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: decode classification: %v", domain.ErrClassification, err)
	}
	if p.Sentiment == "" && p.ContentType == "" && p.Relevance == "" {
		return domain.Classification{}, fmt.Errorf("%w: classification fields missing", domain.ErrClassification)
	}

	sentiment, ok := domain.ParseSentiment(p.Sentiment)
	if !ok {
		return domain.Classification{}, fmt.Errorf("%w: unknown sentiment %q", domain.ErrClassification, p.Sentiment)
	}
	contentType, ok := domain.ParseContentType(p.ContentType)
	if !ok {
		return domain.Classification{}, fmt.Errorf("%w: unknown content type %q", domain.ErrClassification, p.ContentType)
	}
	relevance, ok := domain.ParseRelevance(p.Relevance)
	if !ok {
		return domain.Classification{}, fmt.Errorf("%w: unknown relevance %q", domain.ErrClassification, p.Relevance)
	}

	return domain.Classification{
		Sentiment:   sentiment,
		ContentType: contentType,
		Relevance:   relevance,
		Reasoning:   strings.TrimSpace(p.Reasoning),
		Issues:      p.Issues,
	}, nil
}

func preview(s string, limit int) string {
	if r := []rune(s); len(r) > limit {
		return string(r[:limit])
	}
	return s
}
