// Package extractapi implements extraction.Service over a structured-extraction HTTP API.
package extractapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/extraction"
	"NewsHarvester/internal/infrastructure/httpjson"
)

const basePrompt = "Extract the news article on this page: title, a two sentence summary, the full article body as plain text, the author and the publication date (ISO 8601)."

var articleSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":          map[string]string{"type": "string"},
		"summary":        map[string]string{"type": "string"},
		"content":        map[string]string{"type": "string"},
		"author":         map[string]string{"type": "string"},
		"published_date": map[string]string{"type": "string"},
	},
	"required": []string{"title", "content"},
}

// Service submits extraction jobs and polls their status.
type Service struct {
	api *httpjson.Client
}

var _ extraction.Service = (*Service)(nil)

// NewService wraps a configured JSON client.
func NewService(api *httpjson.Client) *Service {
	return &Service{api: api}
}

type submitRequest struct {
	URLs   []string       `json:"urls"`
	Prompt string         `json:"prompt"`
	Schema map[string]any `json:"schema"`
}

type submitResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type statusResponse struct {
	Success bool            `json:"success"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Submit posts urls for extraction. Inline data yields extraction.Immediate, a job id
// yields extraction.Queued.
func (s *Service) Submit(ctx context.Context, urls []string, hint string) (extraction.Submission, error) {
	var resp submitResponse
	if err := s.api.Post(ctx, "/v1/extract", submitRequest{URLs: urls, Prompt: Prompt(hint), Schema: articleSchema}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtractionFailed, resp.Error)
	}

	if hasData(resp.Data) {
		results, err := DecodeResults(resp.Data)
		if err != nil {
			return nil, err
		}
		return extraction.Immediate{Results: results}, nil
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: response carried neither data nor job id", domain.ErrExtractionFailed)
	}
	return extraction.Queued{JobID: resp.ID}, nil
}

// Poll fetches the current state of jobID.
func (s *Service) Poll(ctx context.Context, jobID string) (extraction.PollResult, error) {
	var resp statusResponse
	if err := s.api.Get(ctx, "/v1/extract/"+url.PathEscape(jobID), &resp); err != nil {
		return extraction.PollResult{}, err
	}

	switch strings.ToLower(resp.Status) {
	case "completed":
		results, err := DecodeResults(resp.Data)
		if err != nil {
			return extraction.PollResult{}, err
		}
		return extraction.PollResult{Status: extraction.JobCompleted, Results: results}, nil
	case "failed", "cancelled":
		msg := resp.Error
		if msg == "" {
			msg = "job " + resp.Status
		}
		return extraction.PollResult{Status: extraction.JobFailed, Error: msg}, nil
	default:
		return extraction.PollResult{Status: extraction.JobProcessing}, nil
	}
}

// Prompt appends the disambiguation hint to the extraction instructions.
func Prompt(hint string) string {
	if strings.TrimSpace(hint) == "" {
		return basePrompt
	}
	return basePrompt + " The article should concern the organization " + strings.TrimSpace(hint) + "."
}

// DecodeResults accepts either an array of articles or a single article object.
func DecodeResults(raw json.RawMessage) ([]domain.ExtractedArticle, error) {
	raw = bytes.TrimSpace(raw)
	if !hasData(raw) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []domain.ExtractedArticle
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: decode results: %v", domain.ErrExtractionFailed, err)
		}
		return list, nil
	}

	var single domain.ExtractedArticle
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("%w: decode result: %v", domain.ErrExtractionFailed, err)
	}
	return []domain.ExtractedArticle{single}, nil
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
