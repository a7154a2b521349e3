package export

import (
	"fmt"
	"path/filepath"

	"github.com/Doomsbay/QCKit/internal/tables"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxFile         = "qckit.xlsx"
	maxSheetNameLen  = 31
	defaultSheetName = "Sheet1"
)

// xlsxFormat writes one sheet per table for people. Counted columns are
// rescaled to the batch units and titled with the unit prefix; hidden
// columns are hidden in the sheet.
type xlsxFormat struct{}

func (xlsxFormat) Name() string { return "xlsx" }

func (xlsxFormat) Write(dir string, batch Batch, force bool) ([]string, error) {
	path := filepath.Join(dir, xlsxFile)
	if err := removeExisting(path, force); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	for _, t := range batch.Tables {
		if err := writeSheet(f, sheetName(t.ID), t, batch.Units); err != nil {
			return nil, err
		}
	}
	if len(batch.Tables) > 0 {
		if err := f.DeleteSheet(defaultSheetName); err != nil {
			return nil, fmt.Errorf("drop default sheet: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	return []string{path}, nil
}

func sheetName(id string) string {
	if len(id) > maxSheetNameLen {
		return id[:maxSheetNameLen]
	}
	return id
}

func writeSheet(f *excelize.File, sheet string, t tables.Table, units tables.Units) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}
	header := make([]any, 0, len(t.Columns)+1)
	header = append(header, rowHeader(t))
	for _, c := range t.Columns {
		header = append(header, units.Title(c))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet, err)
	}
	for i, r := range t.Rows {
		row := make([]any, 0, len(r.Values)+1)
		row = append(row, r.Key)
		for j, v := range r.Values {
			row = append(row, units.Display(t.Columns[j], v))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %s: %w", sheet, r.Key, err)
		}
	}
	for i, c := range t.Columns {
		if !c.Hidden {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		if err := f.SetColVisible(sheet, col, false); err != nil {
			return fmt.Errorf("hide %s: %w", c.Key, err)
		}
	}
	return nil
}
