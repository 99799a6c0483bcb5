package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"skledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleRecord(t *testing.T) core.PeriodRecord {
	t.Helper()
	rec := core.NewPeriodRecord()
	rec.SetHeader("SK General Fund", "7")
	rec.SetOpening(dec("1000"))
	rec.Schema.AddAccount(core.MOOE, "Training Expenses", 3)
	drafts := []core.Draft{
		{Date: core.NewDate(2025, 4, 1), Reference: "OR-1", Payee: "Treasurer", Particulars: "Release", Deposit: dec("500")},
		{
			Date: core.NewDate(2025, 4, 8), Reference: "CHK-1", Payee: "Store", Withdrawal: dec("200.75"),
			MOOE:        core.Amounts{"Office Supplies": dec("180.75"), "Travel": dec("1")},
			CO:          core.Amounts{"Equipment Outlay": dec("0")},
			Withholding: core.Amounts{"EWT": dec("20")},
			Others:      dec("3.5"), AdvOfficials: dec("1.25"), AdvTreasurer: dec("2"),
		},
	}
	for _, d := range drafts {
		if err := rec.Append(d); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return rec
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.PeriodKey{Year: 2025, Quarter: core.Q2}

	if _, found, err := repo.Load(ctx, key); err != nil || found {
		t.Fatalf("expected no period, found=%v err=%v", found, err)
	}

	want := sampleRecord(t)
	if err := repo.Save(ctx, key, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := repo.Load(ctx, key)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}

	if got.Metadata.Fund != "SK General Fund" || got.Metadata.SheetNo != "7" || !got.Metadata.Opening.Equal(dec("1000")) {
		t.Fatalf("metadata mismatch %+v", got.Metadata)
	}
	if len(got.Schema.MOOE) != 3 || got.Schema.MOOE[2] != "Training Expenses" || got.Schema.CO[0] != "Equipment Outlay" {
		t.Fatalf("schema mismatch %+v", got.Schema)
	}
	if len(got.Entries) != len(want.Entries) {
		t.Fatalf("entries mismatch: %d vs %d", len(got.Entries), len(want.Entries))
	}
	for i := range want.Entries {
		g, w := got.Entries[i], want.Entries[i]
		if g.Date.String() != w.Date.String() || g.Reference != w.Reference || g.Payee != w.Payee || g.Particulars != w.Particulars {
			t.Fatalf("entry %d text mismatch: %+v vs %+v", i, g, w)
		}
		if !g.Deposit.Equal(w.Deposit) || !g.Withdrawal.Equal(w.Withdrawal) || !g.Others.Equal(w.Others) ||
			!g.AdvOfficials.Equal(w.AdvOfficials) || !g.AdvTreasurer.Equal(w.AdvTreasurer) {
			t.Fatalf("entry %d amount mismatch: %+v vs %+v", i, g, w)
		}
		for label, amt := range w.MOOE {
			if !g.MOOE.Get(label).Equal(amt) {
				t.Fatalf("entry %d mooe %q: %s vs %s", i, label, g.MOOE.Get(label), amt)
			}
		}
		for label, amt := range w.Withholding {
			if !g.Withholding.Get(label).Equal(amt) {
				t.Fatalf("entry %d withholding %q mismatch", i, label)
			}
		}
	}
	if !got.Entries[1].Balance.Equal(dec("1299.25")) {
		t.Fatalf("balances should be recomputed on load, got %s", got.Entries[1].Balance)
	}
}

func TestSaveReplacesEntries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.PeriodKey{Year: 2025, Quarter: core.Q2}

	rec := sampleRecord(t)
	if err := repo.Save(ctx, key, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := rec.RemoveAt(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rec.Schema.RemoveAccount(core.Withholding, 0)
	if err := repo.Save(ctx, key, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _, err := repo.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Reference != "CHK-1" {
		t.Fatalf("entries not replaced: %+v", got.Entries)
	}
	if len(got.Schema.Withholding) != 1 || got.Schema.Withholding[0] != "EWT" {
		t.Fatalf("schema not updated: %+v", got.Schema.Withholding)
	}
}

func TestEmptySchemaListsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.PeriodKey{Year: 2024, Quarter: core.Q4}
	rec := core.PeriodRecord{Metadata: core.DefaultMetadata()}
	if err := repo.Save(ctx, key, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := repo.Load(ctx, key)
	if err != nil || !found {
		t.Fatalf("load: %v", err)
	}
	if len(got.Schema.MOOE) != 0 || len(got.Entries) != 0 {
		t.Fatalf("expected empty record, got %+v", got)
	}
}

func TestListPeriods(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, k := range []core.PeriodKey{{Year: 2025, Quarter: core.Q2}, {Year: 2024, Quarter: core.Q4}, {Year: 2025, Quarter: core.Q1}} {
		if err := repo.Save(ctx, k, core.NewPeriodRecord()); err != nil {
			t.Fatalf("save %v: %v", k, err)
		}
	}
	keys, err := repo.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"2024-Q4", "2025-Q1", "2025-Q2"}
	if len(keys) != len(want) {
		t.Fatalf("got %v", keys)
	}
	for i := range want {
		if keys[i].String() != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMigrationsShareRepositoryHandle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	key := core.PeriodKey{Year: 2025, Quarter: core.Q2}
	if err := repo.Save(ctx, key, sampleRecord(t)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A second run on the live handle is a no-op and leaves it open.
	if err := RunMigrations(repo.db); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("handle closed by migrations: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen repository: %v", err)
	}
	defer reopened.Close()
	if _, found, err := reopened.Load(ctx, key); err != nil || !found {
		t.Fatalf("load after reopen: found=%v err=%v", found, err)
	}
}
