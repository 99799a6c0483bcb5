package sheets

import (
	"context"

	"skledger/internal/core"
	"skledger/internal/export"
)

// Ports for outbound adapters.
type (
	// PeriodLoader reads a period's triple. found is false when the period
	// has never been saved; callers synthesize defaults in that case.
	PeriodLoader interface {
		Load(ctx context.Context, key core.PeriodKey) (rec core.PeriodRecord, found bool, err error)
	}

	// PeriodSaver durably stores a period's triple. Failures are retriable.
	PeriodSaver interface {
		Save(ctx context.Context, key core.PeriodKey, rec core.PeriodRecord) error
	}

	// PeriodGateway is the persistence boundary of the ledger.
	PeriodGateway interface {
		PeriodLoader
		PeriodSaver
	}

	// PeriodLister returns the keys of all stored periods, oldest first.
	PeriodLister interface {
		ListPeriods(ctx context.Context) ([]core.PeriodKey, error)
	}

	// SnapshotPublisher pushes a rendered register somewhere outside the service.
	SnapshotPublisher interface {
		Publish(ctx context.Context, s export.Snapshot) error
	}
)
