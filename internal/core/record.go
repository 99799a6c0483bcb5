package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultFund    = "General Fund"
	DefaultSheetNo = "1"
)

type (
	// Metadata is the per-period register header plus the opening
	// (brought forward) balance.
	Metadata struct {
		Fund    string          `json:"fund"`
		SheetNo string          `json:"sheetNo"`
		Opening decimal.Decimal `json:"opening"`
	}

	// PeriodRecord is the triple owned by one period: schema, metadata and
	// the append-ordered entries with their derived balances.
	PeriodRecord struct {
		Schema   Schema   `json:"schema"`
		Metadata Metadata `json:"metadata"`
		Entries  []Entry  `json:"entries"`
	}
)

func DefaultMetadata() Metadata {
	return Metadata{Fund: DefaultFund, SheetNo: DefaultSheetNo, Opening: decimal.Zero}
}

// NewPeriodRecord returns the record synthesized for a period that has never
// been saved.
func NewPeriodRecord() PeriodRecord {
	return PeriodRecord{Schema: DefaultSchema(), Metadata: DefaultMetadata(), Entries: []Entry{}}
}

// Append validates and normalizes d, appends it and recomputes balances.
// A rejected draft leaves the record unchanged.
func (r *PeriodRecord) Append(d Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.Entries = append(r.Entries, d.Normalize().Entry())
	r.Recompute()
	return nil
}

// RemoveAt removes and returns the entry at index.
func (r *PeriodRecord) RemoveAt(index int) (Entry, error) {
	if index < 0 || index >= len(r.Entries) {
		return Entry{}, fmt.Errorf("%w: index %d of %d", ErrEntryNotFound, index, len(r.Entries))
	}
	e := r.Entries[index]
	r.Entries = append(r.Entries[:index:index], r.Entries[index+1:]...)
	r.Recompute()
	return e, nil
}

// SetOpening replaces the opening balance and recomputes. It reports whether
// the value changed.
func (r *PeriodRecord) SetOpening(amount decimal.Decimal) bool {
	amount = amount.Round(AmountPlaces)
	if r.Metadata.Opening.Equal(amount) {
		return false
	}
	r.Metadata.Opening = amount
	r.Recompute()
	return true
}

// SetHeader updates fund and sheet number; blank values keep the defaults.
func (r *PeriodRecord) SetHeader(fund, sheetNo string) {
	fund, sheetNo = strings.TrimSpace(fund), strings.TrimSpace(sheetNo)
	if fund == "" {
		fund = DefaultFund
	}
	if sheetNo == "" {
		sheetNo = DefaultSheetNo
	}
	r.Metadata.Fund = fund
	r.Metadata.SheetNo = sheetNo
}

func (r *PeriodRecord) Recompute() {
	RecomputeBalances(r.Metadata.Opening, r.Entries)
}

func (r PeriodRecord) Ending() decimal.Decimal {
	return EndingBalance(r.Metadata.Opening, r.Entries)
}

func (r PeriodRecord) Totals() Totals {
	return Aggregate(r.Schema, r.Entries, r.Metadata.Opening)
}

// Clone deep copies the record.
func (r PeriodRecord) Clone() PeriodRecord {
	out := PeriodRecord{Schema: r.Schema.Clone(), Metadata: r.Metadata, Entries: make([]Entry, len(r.Entries))}
	for i, e := range r.Entries {
		out.Entries[i] = e.Clone()
	}
	return out
}
