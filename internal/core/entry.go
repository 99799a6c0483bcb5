package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts maps a sub-account label to the amount itemized under it.
type Amounts map[string]decimal.Decimal

// Get returns the amount for label, zero when absent.
func (a Amounts) Get(label string) decimal.Decimal {
	if v, ok := a[label]; ok {
		return v
	}
	return decimal.Zero
}

func (a Amounts) Clone() Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

type (
	// Entry is one recorded cash transaction. Balance is derived and is
	// overwritten every time the period's balances are recomputed.
	Entry struct {
		Date         Date            `json:"date"`
		Reference    string          `json:"reference"`
		Payee        string          `json:"payee"`
		Particulars  string          `json:"particulars"`
		Deposit      decimal.Decimal `json:"deposit"`
		Withdrawal   decimal.Decimal `json:"withdrawal"`
		Balance      decimal.Decimal `json:"balance"`
		MOOE         Amounts         `json:"mooe"`
		CO           Amounts         `json:"co"`
		AdvOfficials decimal.Decimal `json:"advOfficials"`
		AdvTreasurer decimal.Decimal `json:"advTreasurer"`
		Others       decimal.Decimal `json:"others"`
		Withholding  Amounts         `json:"withholding"`
	}

	// Draft is an entry being composed, either new or pulled back out of
	// the ledger for editing.
	Draft struct {
		Date         Date            `json:"date"`
		Reference    string          `json:"reference"`
		Payee        string          `json:"payee"`
		Particulars  string          `json:"particulars"`
		Deposit      decimal.Decimal `json:"deposit"`
		Withdrawal   decimal.Decimal `json:"withdrawal"`
		MOOE         Amounts         `json:"mooe"`
		CO           Amounts         `json:"co"`
		AdvOfficials decimal.Decimal `json:"advOfficials"`
		AdvTreasurer decimal.Decimal `json:"advTreasurer"`
		Others       decimal.Decimal `json:"others"`
		Withholding  Amounts         `json:"withholding"`
	}
)

// Validate checks the only fields an entry must carry: date, reference and payee.
func (d Draft) Validate() error {
	if d.Date.IsEmpty() {
		return &ValidationError{Field: "date", Err: ErrMissingDate}
	}
	if strings.TrimSpace(d.Reference) == "" {
		return &ValidationError{Field: "reference", Err: ErrMissingReference}
	}
	if strings.TrimSpace(d.Payee) == "" {
		return &ValidationError{Field: "payee", Err: ErrMissingPayee}
	}
	return nil
}

// Normalize trims text fields, clamps negative deposits and withdrawals to
// zero and copies the amount maps so the draft shares nothing with its source.
func (d Draft) Normalize() Draft {
	d.Reference = strings.TrimSpace(d.Reference)
	d.Payee = strings.TrimSpace(d.Payee)
	d.Particulars = strings.TrimSpace(d.Particulars)
	d.Deposit = NonNegative(d.Deposit).Round(AmountPlaces)
	d.Withdrawal = NonNegative(d.Withdrawal).Round(AmountPlaces)
	d.AdvOfficials = d.AdvOfficials.Round(AmountPlaces)
	d.AdvTreasurer = d.AdvTreasurer.Round(AmountPlaces)
	d.Others = d.Others.Round(AmountPlaces)
	d.MOOE = normalizeAmounts(d.MOOE)
	d.CO = normalizeAmounts(d.CO)
	d.Withholding = normalizeAmounts(d.Withholding)
	return d
}

func normalizeAmounts(a Amounts) Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = v.Round(AmountPlaces)
	}
	return out
}

// Entry converts the draft to an entry with a zero balance.
func (d Draft) Entry() Entry {
	return Entry{
		Date:         d.Date,
		Reference:    d.Reference,
		Payee:        d.Payee,
		Particulars:  d.Particulars,
		Deposit:      d.Deposit,
		Withdrawal:   d.Withdrawal,
		MOOE:         d.MOOE.Clone(),
		CO:           d.CO.Clone(),
		AdvOfficials: d.AdvOfficials,
		AdvTreasurer: d.AdvTreasurer,
		Others:       d.Others,
		Withholding:  d.Withholding.Clone(),
	}
}

// Draft returns the entry's user editable fields, prefilled for redrafting.
func (e Entry) Draft() Draft {
	return Draft{
		Date:         e.Date,
		Reference:    e.Reference,
		Payee:        e.Payee,
		Particulars:  e.Particulars,
		Deposit:      e.Deposit,
		Withdrawal:   e.Withdrawal,
		MOOE:         e.MOOE.Clone(),
		CO:           e.CO.Clone(),
		AdvOfficials: e.AdvOfficials,
		AdvTreasurer: e.AdvTreasurer,
		Others:       e.Others,
		Withholding:  e.Withholding.Clone(),
	}
}

func (e Entry) Clone() Entry {
	e.MOOE = e.MOOE.Clone()
	e.CO = e.CO.Clone()
	e.Withholding = e.Withholding.Clone()
	return e
}
