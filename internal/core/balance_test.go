package core

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func randomEntries(r *rand.Rand, n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Deposit:    decimal.New(r.Int63n(1_000_000), -2),
			Withdrawal: decimal.New(r.Int63n(1_000_000), -2),
		}
	}
	return entries
}

func TestRecomputeBalancesRecurrence(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		opening := decimal.New(r.Int63n(10_000_000)-5_000_000, -2)
		entries := randomEntries(r, r.Intn(40))
		RecomputeBalances(opening, entries)
		for i, e := range entries {
			prev := opening
			if i > 0 {
				prev = entries[i-1].Balance
			}
			want := prev.Add(e.Deposit).Sub(e.Withdrawal)
			if !e.Balance.Equal(want) {
				t.Fatalf("run %d entry %d: balance %s, want %s", run, i, e.Balance, want)
			}
		}
	}
}

func TestRecomputeBalancesIdempotent(t *testing.T) {
	entries := randomEntries(rand.New(rand.NewSource(7)), 10)
	RecomputeBalances(dec("100"), entries)
	first := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		first[i] = e.Balance
	}
	RecomputeBalances(dec("100"), entries)
	for i, e := range entries {
		if !e.Balance.Equal(first[i]) {
			t.Fatalf("entry %d drifted: %s != %s", i, e.Balance, first[i])
		}
	}
}

func TestEndingBalanceWithoutEntries(t *testing.T) {
	opening := dec("1234.56")
	if got := EndingBalance(opening, nil); !got.Equal(opening) {
		t.Fatalf("got %s, want %s", got, opening)
	}
	if got := Aggregate(DefaultSchema(), nil, opening).Ending; !got.Equal(opening) {
		t.Fatalf("aggregate ending %s, want %s", got, opening)
	}
}

func TestDepositWithdrawalScenario(t *testing.T) {
	rec := NewPeriodRecord()
	rec.SetOpening(dec("1000"))
	drafts := []Draft{
		{Date: NewDate(2025, 1, 5), Reference: "OR-1", Payee: "Treasury", Deposit: dec("500")},
		{Date: NewDate(2025, 1, 9), Reference: "CHK-1", Payee: "Supplier", Withdrawal: dec("200")},
	}
	for _, d := range drafts {
		if err := rec.Append(d); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	want := []string{"1500", "1300"}
	for i, e := range rec.Entries {
		if !e.Balance.Equal(dec(want[i])) {
			t.Fatalf("entry %d balance %s, want %s", i, e.Balance, want[i])
		}
	}
	if !rec.Ending().Equal(dec("1300")) {
		t.Fatalf("ending %s, want 1300", rec.Ending())
	}
}

func TestSumsOrderIndependentBalancesOrderDependent(t *testing.T) {
	entries := []Entry{
		{Deposit: dec("100")},
		{Withdrawal: dec("50")},
		{Deposit: dec("20"), Withdrawal: dec("5")},
	}
	reversed := []Entry{entries[2], entries[1], entries[0]}
	shuffled := append([]Entry(nil), entries...)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	opening := dec("10")
	base := Aggregate(Schema{}, entries, opening)
	for _, seq := range [][]Entry{reversed, shuffled} {
		got := Aggregate(Schema{}, seq, opening)
		if !got.Deposit.Equal(base.Deposit) || !got.Withdrawal.Equal(base.Withdrawal) || !got.Ending.Equal(base.Ending) {
			t.Fatalf("sums changed under reordering: %+v vs %+v", got, base)
		}
	}

	RecomputeBalances(opening, entries)
	RecomputeBalances(opening, reversed)
	same := true
	for i := range entries {
		if !entries[i].Balance.Equal(reversed[i].Balance) {
			same = false
		}
	}
	if same {
		t.Fatalf("expected running balances to depend on entry order")
	}
}
