// Package orchestrator runs the end-to-end weekly pipeline: partition the
// configured date range, acquire or reuse one raw export per week, aggregate
// it, write the per-week and combined artifacts, and optionally push each
// summary row to a spreadsheet. A week that fails is recorded and skipped;
// the run continues with the next week.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"chanperf/internal/config"
	"chanperf/internal/dataprocessing"
	"chanperf/internal/errors"
	"chanperf/internal/exporter"
	"chanperf/internal/files"
	"chanperf/internal/weeks"
)

// WeekAcquirer produces one raw export file per week from a browser session.
type WeekAcquirer interface {
	EnsureAuthenticated(ctx context.Context) error
	AcquireWeek(ctx context.Context, week weeks.Range) (string, error)
}

// RowPusher hands one summary row to the spreadsheet sync.
type RowPusher interface {
	PushRow(ctx context.Context, row dataprocessing.SummaryRow) error
}

// WeekResult records the outcome for one week.
type WeekResult struct {
	Week        weeks.Range
	RawPath     string
	SummaryPath string
	Reused      bool
	Row         dataprocessing.SummaryRow
	Err         error
}

// RunReport is the final accounting of a run.
type RunReport struct {
	Results     []WeekResult
	Rows        []dataprocessing.SummaryRow
	CombinedCSV string
	Workbook    string
	SyncErrors  int
}

// Failed returns the results of weeks that produced no summary row.
func (r *RunReport) Failed() []WeekResult {
	var failed []WeekResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cfg        *config.Config
	acquirer   WeekAcquirer
	files      *files.Manager
	summarizer *dataprocessing.Summarizer
	csv        *exporter.CSVWriter
	workbook   *exporter.WorkbookWriter
	pusher     RowPusher
	logger     *slog.Logger
	now        func() time.Time
}

// New builds an orchestrator. pusher may be nil when spreadsheet upload is
// disabled.
func New(cfg *config.Config, acquirer WeekAcquirer, fm *files.Manager, pusher RowPusher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		acquirer:   acquirer,
		files:      fm,
		summarizer: dataprocessing.NewSummarizer(logger, cfg.Report.Country, time.Now),
		csv:        exporter.NewCSVWriter(logger),
		workbook:   exporter.NewWorkbookWriter(logger),
		pusher:     pusher,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the pipeline over the configured date range. It returns an
// error only for run-level failures: an invalid range or a login that never
// produced a session. Per-week failures live in the report.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	since, until, err := o.cfg.DateRange()
	if err != nil {
		return nil, err
	}
	plan, err := weeks.Partition(since, until, o.cfg.Report.WeekStartDay)
	if err != nil {
		return nil, err
	}
	o.logger.Info("run plan",
		slog.Time("since", since),
		slog.Time("until", until),
		slog.Int("weeks", len(plan)))

	report := &RunReport{}
	for _, week := range plan {
		result := o.runWeek(ctx, week)
		report.Results = append(report.Results, result)
		if result.Err != nil {
			if errors.KindOf(result.Err) == errors.KindAuthenticationFailed {
				// No session means no week can succeed.
				return report, result.Err
			}
			o.logger.Error("week failed",
				slog.String("week", week.String()),
				slog.Time("week_start", week.Start),
				slog.Time("week_end", week.End),
				slog.String("error", result.Err.Error()))
			continue
		}

		report.Rows = append(report.Rows, result.Row)
		if o.pusher != nil {
			if err := o.pusher.PushRow(ctx, result.Row); err != nil {
				// Local artifacts are the durable record; sync errors
				// never fail the week.
				report.SyncErrors++
				o.logger.Error("spreadsheet sync failed",
					slog.String("week", week.String()),
					slog.String("error", err.Error()))
			}
		}
	}

	if err := o.writeCombined(report, since, until); err != nil {
		o.logger.Error("combined artifacts failed", slog.String("error", err.Error()))
	}

	o.logger.Info("run complete",
		slog.Int("weeks", len(plan)),
		slog.Int("succeeded", len(report.Rows)),
		slog.Int("failed", len(report.Failed())),
		slog.Int("sync_errors", report.SyncErrors))
	return report, nil
}

// runWeek produces one summary row: reuse an existing raw export when one is
// on disk, otherwise acquire a fresh one through the browser.
func (o *Orchestrator) runWeek(ctx context.Context, week weeks.Range) WeekResult {
	result := WeekResult{Week: week}

	rawPath, reused := o.files.FindRawExport(o.cfg.Report.Country, week)
	if reused {
		o.logger.Info("reusing existing raw export",
			slog.String("week", week.String()),
			slog.String("path", rawPath))
	} else {
		if err := o.acquirer.EnsureAuthenticated(ctx); err != nil {
			result.Err = err
			return result
		}
		var err error
		rawPath, err = o.acquirer.AcquireWeek(ctx, week)
		if err != nil {
			result.Err = err
			return result
		}
	}
	result.RawPath = rawPath
	result.Reused = reused

	rows, err := dataprocessing.ReadRawExport(rawPath)
	if err != nil {
		result.Err = err
		return result
	}

	result.Row = o.summarizer.Aggregate(rows, week)
	result.SummaryPath = o.files.SummaryPath(rawPath)
	if err := o.csv.WriteSummary(result.SummaryPath, []dataprocessing.SummaryRow{result.Row}); err != nil {
		result.Err = errors.Wrap(errors.KindExecution, "export", "write per-week summary", err)
		return result
	}
	return result
}

// writeCombined emits the end-of-run combined CSV and its xlsx twin.
func (o *Orchestrator) writeCombined(report *RunReport, since, until time.Time) error {
	if len(report.Rows) == 0 {
		o.logger.Warn("no successful weeks, skipping combined artifacts")
		return nil
	}

	combined := o.files.CombinedPath(o.cfg.Report.Country, since, until, o.now())
	if err := o.csv.WriteSummary(combined, report.Rows); err != nil {
		return err
	}
	report.CombinedCSV = combined

	workbook := o.files.WorkbookPath(combined)
	if err := o.workbook.WriteWorkbook(workbook, report.Rows); err != nil {
		return err
	}
	report.Workbook = workbook
	return nil
}
