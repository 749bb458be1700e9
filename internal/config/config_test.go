package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chanperf/internal/errors"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Store.Slug = "acme-outdoors"
	cfg.Store.Host = "admin.shopify.com"
	cfg.Report.Since = "2025-09-01"
	cfg.Report.Until = "2025-09-30"
	cfg.Report.Country = "US"
	cfg.Report.DownloadDir = "downloads"
	cfg.Sheets.Mode = "append"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "console"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHANPERF_STORE_SLUG", "acme-outdoors")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "acme-outdoors", cfg.Store.Slug)
	assert.Equal(t, "admin.shopify.com", cfg.Store.Host)
	assert.Equal(t, "US", cfg.Report.Country)
	assert.Equal(t, 0, cfg.Report.WeekStartDay)
	assert.Equal(t, "2025-09-01", cfg.Report.Since)
	assert.NotEmpty(t, cfg.Report.Until, "until defaults to today")
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "append", cfg.Sheets.Mode)
	assert.False(t, cfg.Sheets.Upload)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHANPERF_STORE_SLUG", "acme-outdoors")
	t.Setenv("CHANPERF_REPORT_COUNTRY", "GB")
	t.Setenv("CHANPERF_REPORT_WEEK_START_DAY", "6")
	t.Setenv("CHANPERF_SHEETS_MODE", "overwrite")
	t.Setenv("CHANPERF_BROWSER_HEADLESS", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "GB", cfg.Report.Country)
	assert.Equal(t, 6, cfg.Report.WeekStartDay)
	assert.Equal(t, "overwrite", cfg.Sheets.Mode)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_YAMLFileFillsGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reporter.yaml")
	content := "store:\n  slug: from-file\n  email: ops@example.com\nsheets:\n  spreadsheet_id: sheet-123\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Store.Slug)
	assert.Equal(t, "ops@example.com", cfg.Store.Email)
	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	t.Setenv("CHANPERF_STORE_SLUG", "from-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "reporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  slug: from-file\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Store.Slug)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingSlug(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Slug = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingConfig, apperrors.KindOf(err))
}

func TestValidate_InvalidRange(t *testing.T) {
	cfg := validConfig()
	cfg.Report.Since = "2025-10-01"
	cfg.Report.Until = "2025-09-01"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidRange, apperrors.KindOf(err))
	assert.True(t, apperrors.IsFatal(err))
}

func TestValidate_WeekStartBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Report.WeekStartDay = 7

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingConfig, apperrors.KindOf(err))
}

func TestValidate_SheetUploadNeedsSpreadsheetID(t *testing.T) {
	cfg := validConfig()
	cfg.Sheets.Upload = true
	cfg.Sheets.SpreadsheetID = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingConfig, apperrors.KindOf(err))

	cfg.Sheets.SpreadsheetID = "sheet-123"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AutoLoginNeedsCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Store.AutoLogin = true
	cfg.Store.Email = "ops@example.com"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingConfig, apperrors.KindOf(err))

	cfg.Store.Password = "hunter2"
	assert.NoError(t, cfg.Validate())
}

func TestDateRange(t *testing.T) {
	cfg := validConfig()

	since, until, err := cfg.DateRange()
	require.NoError(t, err)
	assert.Equal(t, "2025-09-01", since.Format("2006-01-02"))
	assert.Equal(t, "2025-09-30", until.Format("2006-01-02"))
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Report.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Logging.Output = "both"
	cfg.Logging.FilePath = filepath.Join(dir, "logs", "reporter.log")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Report.DownloadDir)
	assert.DirExists(t, filepath.Join(dir, "logs"))
}
