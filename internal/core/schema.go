package core

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultAccountLimit is the number of columns each account list may hold
// when no limit is configured. It matches the printed register form.
const DefaultAccountLimit = 3

// AccountKind selects one of the three sub-account lists of a schema.
type AccountKind string

const (
	MOOE        AccountKind = "mooe"
	CO          AccountKind = "co"
	Withholding AccountKind = "withholding"
)

// AccountKinds lists the kinds in register column order.
var AccountKinds = []AccountKind{MOOE, CO, Withholding}

func ParseAccountKind(s string) (AccountKind, error) {
	k := AccountKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case MOOE, CO, Withholding:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountKind, s)
}

// Schema is the per-period chart of sub-accounts. Entries keep their own
// amount maps; the schema only decides which labels are displayed and totalled.
type Schema struct {
	MOOE        []string `json:"mooe"`
	CO          []string `json:"co"`
	Withholding []string `json:"withholding"`
}

// DefaultSchema is the schema given to a period the first time it is viewed.
func DefaultSchema() Schema {
	return Schema{
		MOOE:        []string{"Travelling Expenses", "Office Supplies"},
		CO:          []string{"Equipment Outlay"},
		Withholding: []string{"VAT", "EWT"},
	}
}

// EffectiveLimit maps non-positive limits to DefaultAccountLimit.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultAccountLimit
	}
	return limit
}

func (s *Schema) list(kind AccountKind) *[]string {
	switch kind {
	case MOOE:
		return &s.MOOE
	case CO:
		return &s.CO
	case Withholding:
		return &s.Withholding
	}
	return nil
}

// Accounts returns a copy of the labels of one kind.
func (s Schema) Accounts(kind AccountKind) []string {
	l := s.list(kind)
	if l == nil {
		return nil
	}
	return slices.Clone(*l)
}

// AddAccount appends a label. It is a silent no-op, returning false, when the
// list already holds limit labels, the label is blank or already present.
func (s *Schema) AddAccount(kind AccountKind, label string, limit int) bool {
	l := s.list(kind)
	label = strings.TrimSpace(label)
	if l == nil || label == "" || slices.Contains(*l, label) {
		return false
	}
	if len(*l) >= EffectiveLimit(limit) {
		return false
	}
	*l = append(*l, label)
	return true
}

// RenameAccount replaces the label at index. Out of range indexes, blank
// labels and labels already used by another column are ignored.
func (s *Schema) RenameAccount(kind AccountKind, index int, label string) bool {
	l := s.list(kind)
	label = strings.TrimSpace(label)
	if l == nil || index < 0 || index >= len(*l) || label == "" {
		return false
	}
	if i := slices.Index(*l, label); i >= 0 && i != index {
		return false
	}
	(*l)[index] = label
	return true
}

// RemoveAccount deletes the label at index; out of range is a no-op.
func (s *Schema) RemoveAccount(kind AccountKind, index int) bool {
	l := s.list(kind)
	if l == nil || index < 0 || index >= len(*l) {
		return false
	}
	*l = slices.Delete(*l, index, index+1)
	return true
}

func (s Schema) Clone() Schema {
	return Schema{
		MOOE:        cloneLabels(s.MOOE),
		CO:          cloneLabels(s.CO),
		Withholding: cloneLabels(s.Withholding),
	}
}

func cloneLabels(l []string) []string {
	if l == nil {
		return []string{}
	}
	return slices.Clone(l)
}
