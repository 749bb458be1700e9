// Package exporter writes summary artifacts: per-week and combined CSV files
// plus an xlsx twin of the combined summary for spreadsheet-first consumers.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"chanperf/internal/dataprocessing"
)

// CSVWriter writes summary rows as CSV files.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteSummary writes header plus the given rows to path, replacing any
// existing file. A UTF-8 BOM is prefixed so Excel opens the file correctly.
func (w *CSVWriter) WriteSummary(path string, rows []dataprocessing.SummaryRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(dataprocessing.SummaryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(row.Record()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := writer.Error(); err != nil {
		return err
	}

	w.logger.Info("wrote summary CSV",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return nil
}
