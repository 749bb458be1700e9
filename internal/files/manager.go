// Package files owns the naming and discovery of run artifacts in the
// download directory. Raw exports and summaries are the durable record of a
// run, independent of any spreadsheet sync.
package files

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chanperf/internal/weeks"
)

// Manager resolves artifact paths inside the download directory.
type Manager struct {
	downloadDir string
	logger      *slog.Logger
}

// NewManager creates a manager rooted at downloadDir.
func NewManager(downloadDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{downloadDir: downloadDir, logger: logger}
}

// DownloadDir returns the artifact root.
func (m *Manager) DownloadDir() string {
	return m.downloadDir
}

// RawExportPath returns a collision-resistant path for one week's raw export,
// keyed by country, date range and timestamp.
func (m *Manager) RawExportPath(country string, week weeks.Range, stamp time.Time) string {
	name := fmt.Sprintf("channel_perf_%s_%s_%s_%s.csv",
		country,
		week.Start.Format("2006-01-02"),
		week.End.Format("2006-01-02"),
		stamp.Format("20060102_150405"))
	return filepath.Join(m.downloadDir, name)
}

// SummaryPath derives the per-week summary path from its raw export path.
func (m *Manager) SummaryPath(rawPath string) string {
	ext := filepath.Ext(rawPath)
	return strings.TrimSuffix(rawPath, ext) + "_SUMMARY" + ext
}

// CombinedPath returns the end-of-run combined summary CSV path.
func (m *Manager) CombinedPath(country string, since, until time.Time, stamp time.Time) string {
	name := fmt.Sprintf("weekly_summary_%s_%s_%s_%s.csv",
		country,
		since.Format("2006-01-02"),
		until.Format("2006-01-02"),
		stamp.Format("20060102_150405"))
	return filepath.Join(m.downloadDir, name)
}

// WorkbookPath returns the xlsx twin of a combined summary CSV path.
func (m *Manager) WorkbookPath(combinedCSV string) string {
	return strings.TrimSuffix(combinedCSV, filepath.Ext(combinedCSV)) + ".xlsx"
}

// FindRawExport looks for an already-downloaded raw export covering exactly
// the given week and country. When several stamps exist the newest wins.
// Reusing an existing export lets a re-run skip the browser for weeks that
// already succeeded.
func (m *Manager) FindRawExport(country string, week weeks.Range) (string, bool) {
	pattern := filepath.Join(m.downloadDir, fmt.Sprintf("channel_perf_%s_%s_%s_*.csv",
		country,
		week.Start.Format("2006-01-02"),
		week.End.Format("2006-01-02")))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}

	// Exclude derived summaries; timestamps sort lexically, newest last.
	var raws []string
	for _, match := range matches {
		if !strings.Contains(filepath.Base(match), "_SUMMARY") {
			raws = append(raws, match)
		}
	}
	if len(raws) == 0 {
		return "", false
	}
	sort.Strings(raws)

	found := raws[len(raws)-1]
	m.logger.Debug("found existing raw export",
		slog.String("week", week.String()),
		slog.String("path", found))
	return found, true
}
