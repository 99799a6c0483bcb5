// Package export turns a period record into the pre-formatted snapshot used
// by the printable register, the workbook export and the Sheets publisher.
// Building a snapshot performs no I/O.
package export

import (
	"strconv"

	"github.com/shopspring/decimal"

	"skledger/internal/core"
)

const (
	LabelBroughtForward = "Balance brought forward"
	LabelQuarterTotals  = "Total for the quarter"
	LabelCarriedForward = "Balance carried forward"
)

type (
	// Column is one dynamic sub-account column. Columns are padded to the
	// account limit; padding columns are not Present and have no label.
	Column struct {
		Label   string `json:"label"`
		Present bool   `json:"present"`
	}

	// Row is one printed line. Amounts are thousands grouped with two
	// decimals and blank when zero; Balance on the brought forward and
	// total rows is always printed.
	Row struct {
		Date         string   `json:"date"`
		Reference    string   `json:"reference"`
		Payee        string   `json:"payee"`
		Particulars  string   `json:"particulars"`
		Deposit      string   `json:"deposit"`
		Withdrawal   string   `json:"withdrawal"`
		Balance      string   `json:"balance"`
		MOOE         []string `json:"mooe"`
		CO           []string `json:"co"`
		AdvOfficials string   `json:"advOfficials"`
		AdvTreasurer string   `json:"advTreasurer"`
		Others       string   `json:"others"`
		Withholding  []string `json:"withholding"`
	}

	Snapshot struct {
		PeriodKey          string   `json:"periodKey"`
		Year               int      `json:"year"`
		Quarter            string   `json:"quarter"`
		PeriodLabel        string   `json:"periodLabel"`
		Fund               string   `json:"fund"`
		SheetNo            string   `json:"sheetNo"`
		MOOEColumns        []Column `json:"mooeColumns"`
		COColumns          []Column `json:"coColumns"`
		WithholdingColumns []Column `json:"withholdingColumns"`
		BroughtForward     Row      `json:"broughtForward"`
		Rows               []Row    `json:"rows"`
		QuarterTotals      Row      `json:"quarterTotals"`
		CarriedForward     Row      `json:"carriedForward"`
	}
)

// Build renders rec for key. Balances are recomputed on a copy, so a record
// with stale balances still produces a consistent register.
func Build(key core.PeriodKey, rec core.PeriodRecord, limit int) Snapshot {
	limit = core.EffectiveLimit(limit)
	rec = rec.Clone()
	rec.Recompute()
	totals := rec.Totals()

	s := Snapshot{
		PeriodKey:          key.String(),
		Year:               key.Year,
		Quarter:            key.Quarter.String(),
		PeriodLabel:        key.Label(),
		Fund:               rec.Metadata.Fund,
		SheetNo:            rec.Metadata.SheetNo,
		MOOEColumns:        columns(rec.Schema.MOOE, limit),
		COColumns:          columns(rec.Schema.CO, limit),
		WithholdingColumns: columns(rec.Schema.Withholding, limit),
		Rows:               make([]Row, 0, len(rec.Entries)),
	}

	s.BroughtForward = Row{
		Particulars: LabelBroughtForward,
		Balance:     core.FormatAmount(rec.Metadata.Opening),
		MOOE:        make([]string, limit),
		CO:          make([]string, limit),
		Withholding: make([]string, limit),
	}

	for _, e := range rec.Entries {
		s.Rows = append(s.Rows, Row{
			Date:         e.Date.String(),
			Reference:    e.Reference,
			Payee:        e.Payee,
			Particulars:  e.Particulars,
			Deposit:      core.FormatAmountBlank(e.Deposit),
			Withdrawal:   core.FormatAmountBlank(e.Withdrawal),
			Balance:      core.FormatAmountBlank(e.Balance),
			MOOE:         cells(s.MOOEColumns, e.MOOE.Get),
			CO:           cells(s.COColumns, e.CO.Get),
			AdvOfficials: core.FormatAmountBlank(e.AdvOfficials),
			AdvTreasurer: core.FormatAmountBlank(e.AdvTreasurer),
			Others:       core.FormatAmountBlank(e.Others),
			Withholding:  cells(s.WithholdingColumns, e.Withholding.Get),
		})
	}

	s.QuarterTotals = totalsRow(LabelQuarterTotals, s, totals)
	s.CarriedForward = totalsRow(LabelCarriedForward, s, totals)
	return s
}

func columns(labels []string, limit int) []Column {
	out := make([]Column, limit)
	for i := 0; i < limit && i < len(labels); i++ {
		out[i] = Column{Label: labels[i], Present: true}
	}
	return out
}

func cells(cols []Column, amount func(string) decimal.Decimal) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		if col.Present {
			out[i] = core.FormatAmountBlank(amount(col.Label))
		}
	}
	return out
}

func totalsRow(label string, s Snapshot, t core.Totals) Row {
	return Row{
		Particulars:  label,
		Deposit:      core.FormatAmountBlank(t.Deposit),
		Withdrawal:   core.FormatAmountBlank(t.Withdrawal),
		Balance:      core.FormatAmount(t.Ending),
		MOOE:         cells(s.MOOEColumns, func(l string) decimal.Decimal { return core.Amount(t.MOOE, l) }),
		CO:           cells(s.COColumns, func(l string) decimal.Decimal { return core.Amount(t.CO, l) }),
		AdvOfficials: core.FormatAmountBlank(t.AdvOfficials),
		AdvTreasurer: core.FormatAmountBlank(t.AdvTreasurer),
		Others:       core.FormatAmountBlank(t.Others),
		Withholding:  cells(s.WithholdingColumns, func(l string) decimal.Decimal { return core.Amount(t.Withholding, l) }),
	}
}

// Title is the register heading used by every rendering.
func (s Snapshot) Title() string {
	return "REGISTER OF CASH IN BANK"
}

// Header returns the column headings in register order.
func (s Snapshot) Header() []string {
	h := []string{"Date", "Reference", "Payee", "Particulars", "Deposit", "Withdrawal", "Balance"}
	h = append(h, labels(s.MOOEColumns, "MOOE")...)
	h = append(h, labels(s.COColumns, "CO")...)
	h = append(h, "Adv. to Officials", "Adv. to Treasurer", "Others")
	h = append(h, labels(s.WithholdingColumns, "WT")...)
	return h
}

func labels(cols []Column, prefix string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if c.Present {
			out[i] = prefix + ": " + c.Label
		}
	}
	return out
}

// Grid flattens the snapshot into rows of cells: title, header block,
// column headings, brought forward, entries, totals, carried forward.
func Grid(s Snapshot) [][]string {
	header := s.Header()
	width := len(header)
	line := func(cells ...string) []string {
		out := make([]string, width)
		copy(out, cells)
		return out
	}
	grid := [][]string{
		line(s.Title()),
		line("Fund: "+s.Fund, "", "", "Sheet No.: "+s.SheetNo),
		line(s.PeriodLabel),
		header,
		Cells(s.BroughtForward),
	}
	for _, r := range s.Rows {
		grid = append(grid, Cells(r))
	}
	grid = append(grid, Cells(s.QuarterTotals), Cells(s.CarriedForward))
	return grid
}

// Cells returns the row's cells in the column order of Header.
func Cells(r Row) []string {
	out := []string{r.Date, r.Reference, r.Payee, r.Particulars, r.Deposit, r.Withdrawal, r.Balance}
	out = append(out, r.MOOE...)
	out = append(out, r.CO...)
	out = append(out, r.AdvOfficials, r.AdvTreasurer, r.Others)
	out = append(out, r.Withholding...)
	return out
}

// FileName is the workbook name used for downloads and exports.
func FileName(s Snapshot) string {
	return "rcb-" + strconv.Itoa(s.Year) + "-" + s.Quarter + ".xlsx"
}
