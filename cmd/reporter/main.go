// Command reporter runs the weekly channel performance pipeline end to end:
// it splits the configured date range into calendar weeks, exports each
// week's channel report through an automated browser session, aggregates the
// exports into summary rows, writes per-week and combined artifacts, and
// optionally appends each row to a Google Sheets tab.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"chanperf/internal/acquisition"
	"chanperf/internal/config"
	"chanperf/internal/errors"
	"chanperf/internal/files"
	"chanperf/internal/infrastructure"
	"chanperf/internal/orchestrator"
	"chanperf/internal/session"
	"chanperf/internal/sheets"
)

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			if logger != nil {
				logger.Error("reporter panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	configFile := flag.String("config", "chanperf.yaml", "path to YAML config file (optional)")
	since := flag.String("since", "", "start date (YYYY-MM-DD)")
	until := flag.String("until", "", "end date (YYYY-MM-DD); defaults to today")
	country := flag.String("country", "", "two-letter country filter for the report")
	store := flag.String("store", "", "store slug in the admin URL")
	outDir := flag.String("out", "", "directory for downloads and summaries")
	headless := flag.Bool("headless", true, "run the browser headless")
	upload := flag.Bool("upload", false, "push each summary row to Google Sheets")
	spreadsheet := flag.String("spreadsheet", "", "spreadsheet ID for upload")
	tab := flag.String("tab", "", "spreadsheet tab name")
	mode := flag.String("mode", "", "sheet write mode: append | overwrite")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, flagOverrides{
		since: *since, until: *until, country: *country, store: *store,
		outDir: *outDir, spreadsheet: *spreadsheet, tab: *tab, mode: *mode,
		headless: *headless, upload: *upload,
	})

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.WithTraceID(context.Background(), infrastructure.NewTraceID())
	logger.InfoContext(ctx, "reporter starting",
		slog.String("store", cfg.Store.Slug),
		slog.String("since", cfg.Report.Since),
		slog.String("until", cfg.Report.Until),
		slog.String("country", cfg.Report.Country))

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	downloadDir, err := filepath.Abs(cfg.Report.DownloadDir)
	if err != nil {
		return fmt.Errorf("resolve download dir: %w", err)
	}

	browser, err := acquisition.NewBrowser(ctx, cfg.Browser.Headless, downloadDir, logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	sessions := session.NewStore(cfg.Browser.SessionFile, cfg.Browser.SealSession,
		sessionSecret(cfg), logger)
	fm := files.NewManager(downloadDir, logger)
	acquirer := acquisition.NewAcquirer(browser, sessions, fm, cfg, acquisition.StdinPrompter{}, logger)

	var pusher orchestrator.RowPusher
	if cfg.Sheets.Upload {
		api, err := sheets.NewGoogleAPI(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			return fmt.Errorf("connect to sheets: %w", err)
		}
		pusher = sheets.NewSyncer(api, cfg.Sheets.Tab, sheets.Mode(cfg.Sheets.Mode), logger)
	}

	report, err := orchestrator.New(cfg, acquirer, fm, pusher, logger).Run(ctx)
	if err != nil {
		return err
	}

	for _, failed := range report.Failed() {
		logger.WarnContext(ctx, "week produced no summary",
			slog.String("week", failed.Week.String()),
			slog.String("kind", string(errors.KindOf(failed.Err))))
	}
	if len(report.Rows) == 0 {
		return fmt.Errorf("no week produced a summary row")
	}
	logger.InfoContext(ctx, "artifacts written",
		slog.String("combined_csv", report.CombinedCSV),
		slog.String("workbook", report.Workbook))
	return nil
}

type flagOverrides struct {
	since, until, country, store, outDir, spreadsheet, tab, mode string
	headless, upload                                             bool
}

// applyFlags lets explicitly-set flags win over env and file values.
func applyFlags(cfg *config.Config, o flagOverrides) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if o.since != "" {
		cfg.Report.Since = o.since
	}
	if o.until != "" {
		cfg.Report.Until = o.until
	}
	if o.country != "" {
		cfg.Report.Country = o.country
	}
	if o.store != "" {
		cfg.Store.Slug = o.store
	}
	if o.outDir != "" {
		cfg.Report.DownloadDir = o.outDir
	}
	if o.spreadsheet != "" {
		cfg.Sheets.SpreadsheetID = o.spreadsheet
	}
	if o.tab != "" {
		cfg.Sheets.Tab = o.tab
	}
	if o.mode != "" {
		cfg.Sheets.Mode = o.mode
	}
	if set["headless"] {
		cfg.Browser.Headless = o.headless
	}
	if set["upload"] {
		cfg.Sheets.Upload = o.upload
	}
}

// sessionSecret derives the at-rest sealing secret for the session file from
// the account credentials; an explicit env secret would live here too.
func sessionSecret(cfg *config.Config) string {
	if secret := os.Getenv(config.EnvPrefix + "_SESSION_SECRET"); secret != "" {
		return secret
	}
	return cfg.Store.Email + ":" + cfg.Store.Slug
}
