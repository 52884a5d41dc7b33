package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Progreso"

// WriteXLSX writes m as a single-sheet workbook: one header row of
// "module / item" labels, then one row per user.
func WriteXLSX(w io.Writer, m Matrix) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Usuario", "Nombre", "Estado"}
	for _, c := range m.Columns {
		header = append(header, c.ModuleLabel+" / "+c.ItemLabel)
	}
	header = append(header, "Evaluación Final")
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range m.Rows {
		username := r.Username
		if username == "" {
			username = r.UserID
		}
		values := []any{username, r.FullName, string(r.Status)}
		for _, c := range r.Cells {
			values = append(values, c.Label())
		}
		final := "Pendiente"
		if r.FinalAnalysis != nil {
			final = "Completado " + r.FinalAnalysis.SubmittedAt.Format("2006-01-02")
		}
		values = append(values, final)
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "B", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
