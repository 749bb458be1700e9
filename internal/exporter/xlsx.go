package exporter

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"chanperf/internal/dataprocessing"
)

const workbookSheet = "Weekly Summary"

// WorkbookWriter writes the combined summary as an xlsx workbook.
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer.
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// WriteWorkbook writes header plus rows to a single-sheet workbook at path.
// Numeric columns are written as numbers so spreadsheet formulas work on
// them directly.
func (w *WorkbookWriter) WriteWorkbook(path string, rows []dataprocessing.SummaryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(workbookSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(dataprocessing.SummaryHeader))
	for i, name := range dataprocessing.SummaryHeader {
		header[i] = name
	}
	if err := f.SetSheetRow(workbookSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cells := make([]any, 0, len(dataprocessing.SummaryHeader))
		for _, cell := range row.Record() {
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				cells = append(cells, v)
			} else {
				cells = append(cells, cell)
			}
		}
		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d anchor: %w", i, err)
		}
		if err := f.SetSheetRow(workbookSheet, anchor, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("wrote summary workbook",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return nil
}
