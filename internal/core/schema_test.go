package core

import (
	"errors"
	"slices"
	"testing"
)

func TestSchemaAddAccountCap(t *testing.T) {
	s := Schema{MOOE: []string{"A", "B", "C"}}
	if s.AddAccount(MOOE, "D", DefaultAccountLimit) {
		t.Fatalf("expected 4th account to be rejected")
	}
	if !slices.Equal(s.MOOE, []string{"A", "B", "C"}) {
		t.Fatalf("schema changed: %v", s.MOOE)
	}
}

func TestSchemaAddAccount(t *testing.T) {
	s := DefaultSchema()
	if !s.AddAccount(MOOE, "  Training  ", 3) {
		t.Fatalf("expected add to succeed")
	}
	if got := s.Accounts(MOOE); !slices.Equal(got, []string{"Travelling Expenses", "Office Supplies", "Training"}) {
		t.Fatalf("got %v", got)
	}
	if s.AddAccount(CO, "Equipment Outlay", 3) {
		t.Fatalf("duplicate label should be rejected")
	}
	if s.AddAccount(CO, "   ", 3) {
		t.Fatalf("blank label should be rejected")
	}
	if !s.AddAccount(Withholding, "Percentage Tax", 0) {
		t.Fatalf("non-positive limit should fall back to default")
	}
}

func TestSchemaConfigurableLimit(t *testing.T) {
	var s Schema
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		s.AddAccount(CO, l, 5)
	}
	if len(s.CO) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(s.CO))
	}
	if s.AddAccount(CO, "f", 5) {
		t.Fatalf("expected 6th account to be rejected")
	}
}

func TestSchemaRenameRemove(t *testing.T) {
	s := DefaultSchema()
	if !s.RenameAccount(Withholding, 1, "Expanded WT") {
		t.Fatalf("rename failed")
	}
	if s.Withholding[1] != "Expanded WT" {
		t.Fatalf("got %v", s.Withholding)
	}
	if s.RenameAccount(Withholding, 5, "x") || s.RenameAccount(Withholding, 0, "Expanded WT") {
		t.Fatalf("out of range or duplicate rename should be ignored")
	}
	if !s.RemoveAccount(MOOE, 0) {
		t.Fatalf("remove failed")
	}
	if !slices.Equal(s.MOOE, []string{"Office Supplies"}) {
		t.Fatalf("got %v", s.MOOE)
	}
	if s.RemoveAccount(MOOE, -1) || s.RemoveAccount(MOOE, 1) {
		t.Fatalf("out of range remove should be ignored")
	}
}

func TestSchemaCloneIsIndependent(t *testing.T) {
	s := DefaultSchema()
	c := s.Clone()
	c.RenameAccount(MOOE, 0, "Changed")
	if s.MOOE[0] != "Travelling Expenses" {
		t.Fatalf("clone shares storage with original")
	}
}

func TestParseAccountKind(t *testing.T) {
	if k, err := ParseAccountKind("MOOE"); err != nil || k != MOOE {
		t.Fatalf("got %v, %v", k, err)
	}
	if _, err := ParseAccountKind("capex"); !errors.Is(err, ErrInvalidAccountKind) {
		t.Fatalf("expected ErrInvalidAccountKind, got %v", err)
	}
}
