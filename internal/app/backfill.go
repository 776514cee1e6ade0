package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dispute-analytics/internal/service"
	"dispute-analytics/internal/storage"
)

const backfillBatchSize = 100

// Backfill fetches a tenant's disputes for the range and persists them synchronously.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	p, err := a.openPipeline(ctx, service.Deps{Writer: discardWriter{}})
	if err != nil {
		return err
	}
	defer p.Close()

	store := p.backend.Disputes
	if store == nil && !opts.DryRun {
		return errors.New("persistence disabled; set persistence.driver to backfill")
	}
	if opts.DryRun {
		a.Logger.Warn().Msg("回填 dry-run：不会写入存储")
	}

	result, err := p.svc.Analyze(ctx, service.Request{TenantID: opts.Tenant, Range: opts.Range})
	if err != nil {
		return err
	}

	copies := service.StoredCopies(result.TenantID, result.Disputes, time.Now().UTC())
	persisted, failed := 0, 0
	for start := 0; start < len(copies); start += backfillBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + backfillBatchSize
		if end > len(copies) {
			end = len(copies)
		}
		batch := copies[start:end]
		if opts.DryRun {
			persisted += len(batch)
			continue
		}
		if err := store.UpsertDisputes(ctx, batch); err != nil {
			failed += len(batch)
			a.Logger.Error().Err(err).Int("offset", start).Int("disputes", len(batch)).Msg("回填批次写入失败")
			continue
		}
		persisted += len(batch)
	}

	a.Logger.Info().
		Str("tenant", result.TenantID).
		Int("persisted", persisted).
		Int("failed", failed).
		Msg("回填完成")
	fmt.Fprintf(a.Out, "tenant %s: %d disputes persisted, %d failed\n", result.TenantID, persisted, failed)
	if failed > 0 {
		return fmt.Errorf("%d disputes failed to persist, check logs", failed)
	}
	return nil
}

// discardWriter keeps the pipeline from queueing copies the caller writes itself.
type discardWriter struct{}

func (discardWriter) Enqueue([]storage.StoredDispute) bool { return true }
