package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// batchWriter persists batch state changes, refusing moves the transition table forbids.
type batchWriter struct {
	store   ports.IngestionStore
	metrics ports.Metrics
	now     func() time.Time
}

func (w batchWriter) transition(ctx context.Context, batch *domain.DiscoveryBatch, next domain.BatchStatus, update domain.BatchUpdate) error {
	if !batch.Status.CanTransitionTo(next) {
		return &domain.ErrInvalidTransition{From: batch.Status, To: next}
	}
	update.Status = &next
	if err := w.store.UpdateBatch(ctx, batch.ID, update); err != nil {
		return fmt.Errorf("batch %s -> %s: %w", batch.ID, next, err)
	}
	update.Apply(batch)
	w.metrics.RecordBatchStatus(next)
	return nil
}

// fail moves batch to failed, recording cause. Write errors are returned for logging only.
func (w batchWriter) fail(ctx context.Context, batch *domain.DiscoveryBatch, cause error) error {
	msg := cause.Error()
	at := w.now()
	return w.transition(context.WithoutCancel(ctx), batch, domain.BatchFailed, domain.BatchUpdate{
		Error:       &msg,
		CompletedAt: &at,
	})
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func ptr[T any](v T) *T {
	return &v
}
