package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"skledger/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists period triples. Balances and totals are derived
// and never stored.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for the readiness endpoint.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements sheets.PeriodLoader
func (r *SQLiteRepository) Load(ctx context.Context, key core.PeriodKey) (core.PeriodRecord, bool, error) {
	p, err := r.queries.GetPeriod(ctx, key.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.PeriodRecord{}, false, nil
	}
	if err != nil {
		return core.PeriodRecord{}, false, fmt.Errorf("get period %s: %w", key, err)
	}

	rec := core.PeriodRecord{
		Metadata: core.Metadata{Fund: p.Fund, SheetNo: p.SheetNo, Opening: p.OpeningBalance},
	}
	if err := decodeJSON(p.MooeAccounts, &rec.Schema.MOOE); err != nil {
		return core.PeriodRecord{}, false, fmt.Errorf("decode mooe accounts: %w", err)
	}
	if err := decodeJSON(p.CoAccounts, &rec.Schema.CO); err != nil {
		return core.PeriodRecord{}, false, fmt.Errorf("decode co accounts: %w", err)
	}
	if err := decodeJSON(p.WithholdingAccounts, &rec.Schema.Withholding); err != nil {
		return core.PeriodRecord{}, false, fmt.Errorf("decode withholding accounts: %w", err)
	}

	rows, err := r.queries.ListEntries(ctx, key.String())
	if err != nil {
		return core.PeriodRecord{}, false, fmt.Errorf("list entries %s: %w", key, err)
	}
	rec.Entries = make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := entryFromRow(row)
		if err != nil {
			return core.PeriodRecord{}, false, fmt.Errorf("decode entry %d of %s: %w", row.Position, key, err)
		}
		rec.Entries = append(rec.Entries, e)
	}
	rec.Recompute()
	return rec, true, nil
}

// Save implements sheets.PeriodSaver. The period row is upserted and its
// entries replaced in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, key core.PeriodKey, rec core.PeriodRecord) error {
	p, err := periodToRow(key, rec)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertPeriod(ctx, p); err != nil {
		return fmt.Errorf("upsert period %s: %w", key, err)
	}
	if err := q.DeleteEntries(ctx, p.PeriodKey); err != nil {
		return fmt.Errorf("delete entries %s: %w", key, err)
	}
	for i, e := range rec.Entries {
		row, err := entryToRow(p.PeriodKey, i, e)
		if err != nil {
			return err
		}
		if err := q.InsertEntry(ctx, row); err != nil {
			return fmt.Errorf("insert entry %d of %s: %w", i, key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit period %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Period saved to SQLite",
		"period", p.PeriodKey,
		"entries", len(rec.Entries),
		"opening", p.OpeningBalance.String())
	return nil
}

// ListPeriods implements sheets.PeriodLister
func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.PeriodKey, error) {
	raw, err := r.queries.ListPeriodKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	keys := make([]core.PeriodKey, 0, len(raw))
	for _, s := range raw {
		k, err := core.ParsePeriodKey(s)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed period key", "period", s, "error", err)
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func periodToRow(key core.PeriodKey, rec core.PeriodRecord) (Period, error) {
	mooe, err := encodeJSON(nonNilLabels(rec.Schema.MOOE))
	if err != nil {
		return Period{}, err
	}
	co, err := encodeJSON(nonNilLabels(rec.Schema.CO))
	if err != nil {
		return Period{}, err
	}
	wt, err := encodeJSON(nonNilLabels(rec.Schema.Withholding))
	if err != nil {
		return Period{}, err
	}
	return Period{
		PeriodKey:           key.String(),
		Year:                int64(key.Year),
		Quarter:             int64(key.Quarter),
		Fund:                rec.Metadata.Fund,
		SheetNo:             rec.Metadata.SheetNo,
		OpeningBalance:      rec.Metadata.Opening,
		MooeAccounts:        mooe,
		CoAccounts:          co,
		WithholdingAccounts: wt,
	}, nil
}

func entryToRow(periodKey string, position int, e core.Entry) (LedgerEntry, error) {
	mooe, err := encodeJSON(nonNilAmounts(e.MOOE))
	if err != nil {
		return LedgerEntry{}, err
	}
	co, err := encodeJSON(nonNilAmounts(e.CO))
	if err != nil {
		return LedgerEntry{}, err
	}
	wt, err := encodeJSON(nonNilAmounts(e.Withholding))
	if err != nil {
		return LedgerEntry{}, err
	}
	return LedgerEntry{
		PeriodKey:          periodKey,
		Position:           int64(position),
		EntryDate:          e.Date.String(),
		Reference:          e.Reference,
		Payee:              e.Payee,
		Particulars:        e.Particulars,
		Deposit:            e.Deposit,
		Withdrawal:         e.Withdrawal,
		MooeAmounts:        mooe,
		CoAmounts:          co,
		AdvOfficials:       e.AdvOfficials,
		AdvTreasurer:       e.AdvTreasurer,
		Others:             e.Others,
		WithholdingAmounts: wt,
	}, nil
}

func entryFromRow(row LedgerEntry) (core.Entry, error) {
	date, err := core.ParseDate(row.EntryDate)
	if err != nil {
		return core.Entry{}, err
	}
	e := core.Entry{
		Date:         date,
		Reference:    row.Reference,
		Payee:        row.Payee,
		Particulars:  row.Particulars,
		Deposit:      row.Deposit,
		Withdrawal:   row.Withdrawal,
		AdvOfficials: row.AdvOfficials,
		AdvTreasurer: row.AdvTreasurer,
		Others:       row.Others,
	}
	if err := decodeJSON(row.MooeAmounts, &e.MOOE); err != nil {
		return core.Entry{}, err
	}
	if err := decodeJSON(row.CoAmounts, &e.CO); err != nil {
		return core.Entry{}, err
	}
	if err := decodeJSON(row.WithholdingAmounts, &e.Withholding); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func nonNilLabels(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}

func nonNilAmounts(a core.Amounts) core.Amounts {
	if a == nil {
		return core.Amounts{}
	}
	return a
}
