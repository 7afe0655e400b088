package domain

import (
	"fmt"
	"time"
)

// BatchStatus enumerates DiscoveryBatch lifecycle states.
type BatchStatus string

const (
	BatchDiscovering        BatchStatus = "discovering"
	BatchReadyForProcessing BatchStatus = "ready_for_processing"
	BatchProcessing         BatchStatus = "processing"
	BatchCompleted          BatchStatus = "completed"
	BatchFailed             BatchStatus = "failed"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchDiscovering:        {BatchReadyForProcessing, BatchFailed},
	BatchReadyForProcessing: {BatchProcessing},
	BatchProcessing:         {BatchCompleted, BatchFailed},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// ErrInvalidTransition is returned when a batch is asked to move along an edge the state machine lacks.
type ErrInvalidTransition struct {
	From BatchStatus
	To   BatchStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid batch transition %s -> %s", e.From, e.To)
}

// CandidateURL is a URL found by one discovery source, prior to union.
type CandidateURL struct {
	URL    string
	Source string
}

// DiscoveryBatch is one per-organization discovery-and-ingest run.
type DiscoveryBatch struct {
	ID                  string
	OrganizationID      string
	Status              BatchStatus
	TimeframeDays       int
	DiscoveredURLs      []string
	TotalURLs           int
	ProcessedURLs       int
	SuccessfulURLs      int
	FailedURLs          int
	SourceCounts        map[string]int
	Error               string
	StartedAt           time.Time
	DiscoveredAt        *time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
}

// BatchUpdate carries the partial fields of a batch mutation. Nil fields are left untouched.
type BatchUpdate struct {
	Status              *BatchStatus
	DiscoveredURLs      []string
	TotalURLs           *int
	ProcessedURLs       *int
	SuccessfulURLs      *int
	FailedURLs          *int
	SourceCounts        map[string]int
	Error               *string
	DiscoveredAt        *time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
}

// Apply folds the update into b. Stores without partial-update support use it to merge.
func (u BatchUpdate) Apply(b *DiscoveryBatch) {
	if u.Status != nil {
		b.Status = *u.Status
	}
	if u.DiscoveredURLs != nil {
		b.DiscoveredURLs = append([]string(nil), u.DiscoveredURLs...)
	}
	if u.TotalURLs != nil {
		b.TotalURLs = *u.TotalURLs
	}
	if u.ProcessedURLs != nil {
		b.ProcessedURLs = *u.ProcessedURLs
	}
	if u.SuccessfulURLs != nil {
		b.SuccessfulURLs = *u.SuccessfulURLs
	}
	if u.FailedURLs != nil {
		b.FailedURLs = *u.FailedURLs
	}
	if u.SourceCounts != nil {
		b.SourceCounts = u.SourceCounts
	}
	if u.Error != nil {
		b.Error = *u.Error
	}
	if u.DiscoveredAt != nil {
		b.DiscoveredAt = u.DiscoveredAt
	}
	if u.ProcessingStartedAt != nil {
		b.ProcessingStartedAt = u.ProcessingStartedAt
	}
	if u.CompletedAt != nil {
		b.CompletedAt = u.CompletedAt
	}
}

// ItemStatus is the user-visible end state of one processed URL.
type ItemStatus string

const (
	ItemSuccess   ItemStatus = "success"
	ItemDuplicate ItemStatus = "duplicate"
	ItemError     ItemStatus = "error"
)

// ItemResult is the per-URL record produced while processing a batch.
type ItemResult struct {
	URL       string
	Status    ItemStatus
	Message   string
	ArticleID string
}
