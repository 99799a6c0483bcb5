package core

import "github.com/shopspring/decimal"

type (
	// LabelTotal is the sum of one sub-account column.
	LabelTotal struct {
		Label  string          `json:"label"`
		Amount decimal.Decimal `json:"amount"`
	}

	// Totals are derived from a period's entries and never stored.
	Totals struct {
		Deposit      decimal.Decimal `json:"deposit"`
		Withdrawal   decimal.Decimal `json:"withdrawal"`
		Ending       decimal.Decimal `json:"ending"`
		MOOE         []LabelTotal    `json:"mooe"`
		CO           []LabelTotal    `json:"co"`
		Withholding  []LabelTotal    `json:"withholding"`
		AdvOfficials decimal.Decimal `json:"advOfficials"`
		AdvTreasurer decimal.Decimal `json:"advTreasurer"`
		Others       decimal.Decimal `json:"others"`
	}
)

// Aggregate sums a period. Only labels in the current schema are totalled,
// in schema order; amounts an entry stores under labels no longer in the
// schema are dropped. The ending balance is folded from the opening balance
// rather than read from stored balances, so the result depends only on its
// arguments.
func Aggregate(schema Schema, entries []Entry, opening decimal.Decimal) Totals {
	t := Totals{
		Deposit:      decimal.Zero,
		Withdrawal:   decimal.Zero,
		AdvOfficials: decimal.Zero,
		AdvTreasurer: decimal.Zero,
		Others:       decimal.Zero,
		MOOE:         labelTotals(schema.MOOE, entries, func(e Entry) Amounts { return e.MOOE }),
		CO:           labelTotals(schema.CO, entries, func(e Entry) Amounts { return e.CO }),
		Withholding:  labelTotals(schema.Withholding, entries, func(e Entry) Amounts { return e.Withholding }),
	}
	for _, e := range entries {
		t.Deposit = t.Deposit.Add(e.Deposit)
		t.Withdrawal = t.Withdrawal.Add(e.Withdrawal)
		t.AdvOfficials = t.AdvOfficials.Add(e.AdvOfficials)
		t.AdvTreasurer = t.AdvTreasurer.Add(e.AdvTreasurer)
		t.Others = t.Others.Add(e.Others)
	}
	t.Ending = opening.Add(t.Deposit).Sub(t.Withdrawal)
	return t
}

func labelTotals(labels []string, entries []Entry, pick func(Entry) Amounts) []LabelTotal {
	out := make([]LabelTotal, 0, len(labels))
	for _, label := range labels {
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(pick(e).Get(label))
		}
		out = append(out, LabelTotal{Label: label, Amount: sum})
	}
	return out
}

// Amount returns the total for label, zero when the label is not listed.
func Amount(totals []LabelTotal, label string) decimal.Decimal {
	for _, lt := range totals {
		if lt.Label == label {
			return lt.Amount
		}
	}
	return decimal.Zero
}
