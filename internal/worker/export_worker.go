// Package worker turns period.saved messages into exported registers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"skledger/internal/amqp"
	"skledger/internal/core"
	"skledger/internal/export"
	"skledger/internal/ledger"
	"skledger/internal/sheets"
)

// ErrPeriodNotFound is returned when a message names a period storage does
// not have. The message is acknowledged; retrying cannot help.
var ErrPeriodNotFound = errors.New("period not found")

// ExportWorker renders saved periods and hands the snapshot to every publisher.
type ExportWorker struct {
	loader     sheets.PeriodLoader
	publishers []sheets.SnapshotPublisher
	limit      int
}

func NewExportWorker(loader sheets.PeriodLoader, limit int, publishers ...sheets.SnapshotPublisher) *ExportWorker {
	return &ExportWorker{
		loader:     loader,
		publishers: publishers,
		limit:      core.EffectiveLimit(limit),
	}
}

// HandlePeriodSaved is the AMQP handler. A returned error requeues the message.
func (w *ExportWorker) HandlePeriodSaved(ctx context.Context, msg *amqp.PeriodSavedMessage) error {
	key, err := msg.Key()
	if err != nil {
		slog.WarnContext(ctx, "Dropping message with invalid period", "id", msg.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Processing period saved message",
		"id", msg.ID,
		"period", key.String(),
		"saved_at", msg.SavedAt)

	err = w.Export(ctx, key)
	if errors.Is(err, ErrPeriodNotFound) {
		slog.WarnContext(ctx, "Saved period missing from storage, skipping", "period", key.String())
		return nil
	}
	return err
}

// Export builds the snapshot of key and publishes it concurrently. The
// opening balance is taken from the stored predecessor when there is one.
func (w *ExportWorker) Export(ctx context.Context, key core.PeriodKey) error {
	snap, err := w.Snapshot(ctx, key)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range w.publishers {
		g.Go(func() error {
			if err := p.Publish(gctx, snap); err != nil {
				return fmt.Errorf("publish %s (%T): %w", key, p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Period exported",
		"period", key.String(),
		"entries", len(snap.Rows),
		"publishers", len(w.publishers))
	return nil
}

// Snapshot loads key with its carried opening and renders it.
func (w *ExportWorker) Snapshot(ctx context.Context, key core.PeriodKey) (export.Snapshot, error) {
	rec, found, err := w.loader.Load(ctx, key)
	if err != nil {
		return export.Snapshot{}, fmt.Errorf("load period %s: %w", key, err)
	}
	if !found {
		return export.Snapshot{}, fmt.Errorf("%w: %s", ErrPeriodNotFound, key)
	}

	opening, ok, err := ledger.ResolveOpening(ctx, w.loader, key)
	if err != nil {
		return export.Snapshot{}, err
	}
	if ok {
		rec.SetOpening(opening)
	}
	rec.Recompute()
	return export.Build(key, rec, w.limit), nil
}

// ExportAll exports every stored period, oldest first. It is run at startup
// to catch up on messages published while the worker was down.
func (w *ExportWorker) ExportAll(ctx context.Context, lister sheets.PeriodLister) error {
	keys, err := lister.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("list periods: %w", err)
	}
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Export(ctx, key); err != nil {
			slog.ErrorContext(ctx, "Startup export failed", "period", key.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
