package core

import (
	"testing"
)

func TestAggregateUsesCurrentSchema(t *testing.T) {
	schema := Schema{MOOE: []string{"Office Supplies"}, Withholding: []string{"VAT"}}
	entries := []Entry{
		{Withdrawal: dec("500"), MOOE: Amounts{"Office Supplies": dec("450")}, Withholding: Amounts{"VAT": dec("50")}},
		{Withdrawal: dec("300"), MOOE: Amounts{"Travel": dec("300")}},
		{Withdrawal: dec("100"), Others: dec("100"), AdvOfficials: dec("1"), AdvTreasurer: dec("2")},
	}
	got := Aggregate(schema, entries, dec("1000"))
	if len(got.MOOE) != 1 || got.MOOE[0].Label != "Office Supplies" || !got.MOOE[0].Amount.Equal(dec("450")) {
		t.Fatalf("unexpected MOOE totals %+v", got.MOOE)
	}
	if !Amount(got.MOOE, "Travel").IsZero() {
		t.Fatalf("orphaned label should not be totalled")
	}
	if len(got.CO) != 0 {
		t.Fatalf("expected no CO totals, got %+v", got.CO)
	}
	if !Amount(got.Withholding, "VAT").Equal(dec("50")) {
		t.Fatalf("VAT total %s", Amount(got.Withholding, "VAT"))
	}
	if !got.Withdrawal.Equal(dec("900")) || !got.Ending.Equal(dec("100")) {
		t.Fatalf("withdrawal %s ending %s", got.Withdrawal, got.Ending)
	}
	if !got.Others.Equal(dec("100")) || !got.AdvOfficials.Equal(dec("1")) || !got.AdvTreasurer.Equal(dec("2")) {
		t.Fatalf("fixed columns %+v", got)
	}
}

func TestAggregateOrphanedTravelWithEmptyMOOE(t *testing.T) {
	entries := []Entry{{Withdrawal: dec("300"), MOOE: Amounts{"Travel": dec("300")}}}
	got := Aggregate(Schema{}, entries, dec("0"))
	if len(got.MOOE) != 0 {
		t.Fatalf("expected Travel to be excluded, got %+v", got.MOOE)
	}
	if !got.Withdrawal.Equal(dec("300")) {
		t.Fatalf("withdrawal total should still include the entry, got %s", got.Withdrawal)
	}
}

func TestAggregateMissingKeyCountsAsZero(t *testing.T) {
	schema := Schema{CO: []string{"Equipment Outlay", "Buildings"}}
	entries := []Entry{
		{CO: Amounts{"Equipment Outlay": dec("10")}},
		{CO: nil},
	}
	got := Aggregate(schema, entries, dec("0"))
	if !Amount(got.CO, "Equipment Outlay").Equal(dec("10")) || !Amount(got.CO, "Buildings").IsZero() {
		t.Fatalf("got %+v", got.CO)
	}
	if got.CO[1].Label != "Buildings" {
		t.Fatalf("totals should follow schema order, got %+v", got.CO)
	}
}
