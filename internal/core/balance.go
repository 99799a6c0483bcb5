package core

import "github.com/shopspring/decimal"

// RecomputeBalances assigns every entry's running balance in place:
//
//	balance[i] = balance[i-1] + deposit[i] - withdrawal[i], balance[-1] = opening
//
// It is total and idempotent and must run after any change to the entry
// sequence or the opening balance.
func RecomputeBalances(opening decimal.Decimal, entries []Entry) {
	running := opening
	for i := range entries {
		running = running.Add(entries[i].Deposit).Sub(entries[i].Withdrawal)
		entries[i].Balance = running
	}
}

// EndingBalance is the balance of the last entry, or opening when there are none.
func EndingBalance(opening decimal.Decimal, entries []Entry) decimal.Decimal {
	if len(entries) == 0 {
		return opening
	}
	return entries[len(entries)-1].Balance
}
