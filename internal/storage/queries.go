package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Period is a row of the periods table. Account lists are JSON arrays.
type Period struct {
	PeriodKey           string
	Year                int64
	Quarter             int64
	Fund                string
	SheetNo             string
	OpeningBalance      decimal.Decimal
	MooeAccounts        string
	CoAccounts          string
	WithholdingAccounts string
}

// LedgerEntry is a row of the ledger_entries table. Amount maps are JSON objects.
type LedgerEntry struct {
	PeriodKey          string
	Position           int64
	EntryDate          string
	Reference          string
	Payee              string
	Particulars        string
	Deposit            decimal.Decimal
	Withdrawal         decimal.Decimal
	MooeAmounts        string
	CoAmounts          string
	AdvOfficials       decimal.Decimal
	AdvTreasurer       decimal.Decimal
	Others             decimal.Decimal
	WithholdingAmounts string
}

const getPeriod = `SELECT period_key, year, quarter, fund, sheet_no, opening_balance,
       mooe_accounts, co_accounts, withholding_accounts
FROM periods WHERE period_key = ?`

func (q *Queries) GetPeriod(ctx context.Context, periodKey string) (Period, error) {
	row := q.db.QueryRowContext(ctx, getPeriod, periodKey)
	var p Period
	err := row.Scan(&p.PeriodKey, &p.Year, &p.Quarter, &p.Fund, &p.SheetNo, &p.OpeningBalance,
		&p.MooeAccounts, &p.CoAccounts, &p.WithholdingAccounts)
	return p, err
}

const upsertPeriod = `INSERT INTO periods (period_key, year, quarter, fund, sheet_no, opening_balance,
       mooe_accounts, co_accounts, withholding_accounts, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (period_key) DO UPDATE SET
    fund = excluded.fund,
    sheet_no = excluded.sheet_no,
    opening_balance = excluded.opening_balance,
    mooe_accounts = excluded.mooe_accounts,
    co_accounts = excluded.co_accounts,
    withholding_accounts = excluded.withholding_accounts,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertPeriod(ctx context.Context, p Period) error {
	_, err := q.db.ExecContext(ctx, upsertPeriod, p.PeriodKey, p.Year, p.Quarter, p.Fund, p.SheetNo,
		p.OpeningBalance.String(), p.MooeAccounts, p.CoAccounts, p.WithholdingAccounts)
	return err
}

const deleteEntries = `DELETE FROM ledger_entries WHERE period_key = ?`

func (q *Queries) DeleteEntries(ctx context.Context, periodKey string) error {
	_, err := q.db.ExecContext(ctx, deleteEntries, periodKey)
	return err
}

const insertEntry = `INSERT INTO ledger_entries (period_key, position, entry_date, reference, payee, particulars,
       deposit, withdrawal, mooe_amounts, co_amounts, adv_officials, adv_treasurer, others, withholding_amounts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, e LedgerEntry) error {
	_, err := q.db.ExecContext(ctx, insertEntry, e.PeriodKey, e.Position, e.EntryDate, e.Reference, e.Payee,
		e.Particulars, e.Deposit.String(), e.Withdrawal.String(), e.MooeAmounts, e.CoAmounts,
		e.AdvOfficials.String(), e.AdvTreasurer.String(), e.Others.String(), e.WithholdingAmounts)
	return err
}

const listEntries = `SELECT period_key, position, entry_date, reference, payee, particulars, deposit, withdrawal,
       mooe_amounts, co_amounts, adv_officials, adv_treasurer, others, withholding_amounts
FROM ledger_entries WHERE period_key = ? ORDER BY position`

func (q *Queries) ListEntries(ctx context.Context, periodKey string) ([]LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, listEntries, periodKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.PeriodKey, &e.Position, &e.EntryDate, &e.Reference, &e.Payee, &e.Particulars,
			&e.Deposit, &e.Withdrawal, &e.MooeAmounts, &e.CoAmounts, &e.AdvOfficials, &e.AdvTreasurer,
			&e.Others, &e.WithholdingAmounts); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPeriodKeys = `SELECT period_key FROM periods ORDER BY year, quarter`

func (q *Queries) ListPeriodKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPeriodKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
