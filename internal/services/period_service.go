package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"skledger/internal/core"
	"skledger/internal/sheets"
)

// Notifier announces saved periods, e.g. over AMQP.
type Notifier interface {
	PublishPeriodSaved(ctx context.Context, key core.PeriodKey) error
}

// PeriodStore is the durable storage behind the service.
type PeriodStore interface {
	sheets.PeriodGateway
	sheets.PeriodLister
}

// PeriodService orchestrates period persistence across storage and AMQP.
// It is itself a sheets.PeriodGateway, so the ledger controller saves through it.
type PeriodService struct {
	storage  PeriodStore
	notifier Notifier
}

var (
	_ sheets.PeriodGateway = (*PeriodService)(nil)
	_ sheets.PeriodLister  = (*PeriodService)(nil)
)

func NewPeriodService(storage PeriodStore, notifier Notifier) *PeriodService {
	return &PeriodService{
		storage:  storage,
		notifier: notifier,
	}
}

func (s *PeriodService) Load(ctx context.Context, key core.PeriodKey) (core.PeriodRecord, bool, error) {
	return s.storage.Load(ctx, key)
}

// Save stores the period and then publishes a period saved message. A
// publish failure is logged and never fails the save.
func (s *PeriodService) Save(ctx context.Context, key core.PeriodKey, rec core.PeriodRecord) error {
	// Save to SQLite first (fast, reliable)
	if err := s.storage.Save(ctx, key, rec); err != nil {
		return fmt.Errorf("save period: %w", err)
	}

	if s.notifier == nil {
		slog.DebugContext(ctx, "No notifier configured, skipping period saved message", "period", key.String())
		return nil
	}
	if err := s.notifier.PublishPeriodSaved(ctx, key); err != nil {
		slog.ErrorContext(ctx, "Failed to publish period saved message",
			"period", key.String(), "error", err)
	}
	return nil
}

func (s *PeriodService) ListPeriods(ctx context.Context) ([]core.PeriodKey, error) {
	return s.storage.ListPeriods(ctx)
}

// Close closes storage and notifier when they hold resources.
func (s *PeriodService) Close() error {
	var errs []error

	if c, ok := s.storage.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.notifier.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close period service: %w", err)
	}
	return nil
}
