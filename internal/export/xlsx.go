package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the register.
const SheetName = "RCB"

// headerRows is the number of grid rows above the first data row.
const headerRows = 4

// NewWorkbook lays the snapshot grid out on a single worksheet. The caller
// owns the returned file and must Close it.
func NewWorkbook(s Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	grid := Grid(s)
	for i, row := range grid {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := styleWorkbook(f, len(grid[headerRows-1]), len(grid)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteWorkbook writes the snapshot as an xlsx document to w.
func WriteWorkbook(w io.Writer, s Snapshot) error {
	f, err := NewWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the snapshot to an xlsx file at path.
func SaveWorkbook(path string, s Snapshot) error {
	f, err := NewWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func styleWorkbook(f *excelize.File, width, height int) error {
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.MergeCell(SheetName, "A1", lastCol+"1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	headerRow := fmt.Sprint(headerRows)
	if err := f.SetCellStyle(SheetName, "A"+headerRow, lastCol+headerRow, bold); err != nil {
		return err
	}
	totalsTop := fmt.Sprint(height - 1)
	if err := f.SetCellStyle(SheetName, "A"+totalsTop, lastCol+fmt.Sprint(height), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "D", 18); err != nil {
		return err
	}
	return f.SetColWidth(SheetName, "E", lastCol, 14)
}
