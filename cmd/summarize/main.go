// Command summarize re-aggregates a single raw channel export into its
// summary CSV without touching the browser. It exists for manual retries:
// when a week's export was downloaded by hand or its summary needs to be
// regenerated, summarize produces the same row the full pipeline would.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"chanperf/internal/config"
	"chanperf/internal/dataprocessing"
	"chanperf/internal/exporter"
	"chanperf/internal/files"
	"chanperf/internal/infrastructure"
	"chanperf/internal/weeks"
)

// rawNamePattern matches the pipeline's raw export file names, capturing the
// country and the week bounds.
var rawNamePattern = regexp.MustCompile(`^channel_perf_([A-Z]{2})_(\d{4}-\d{2}-\d{2})_(\d{4}-\d{2}-\d{2})_`)

func main() {
	in := flag.String("in", "", "path to the raw export CSV (required)")
	out := flag.String("out", "", "summary output path (defaults to <in>_SUMMARY.csv)")
	since := flag.String("since", "", "week start date (YYYY-MM-DD); defaults from the file name")
	until := flag.String("until", "", "week end date (YYYY-MM-DD); defaults from the file name")
	country := flag.String("country", "", "two-letter country code; defaults from the file name")
	flag.Parse()

	if *in == "" {
		fmt.Println("Error: -in is required")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{
		Level: "info", Format: "text", Output: "console",
	})
	if err != nil {
		fmt.Printf("Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(*in, *out, *since, *until, *country, logger); err != nil {
		logger.Error("summarize failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(in, out, since, until, country string, logger *slog.Logger) error {
	cc, start, end, err := resolveWeek(in, since, until, country)
	if err != nil {
		return err
	}

	rows, err := dataprocessing.ReadRawExport(in)
	if err != nil {
		return err
	}

	week := weeks.Range{Start: start, End: end}
	summary := dataprocessing.NewSummarizer(logger, cc, time.Now).Aggregate(rows, week)

	if out == "" {
		out = files.NewManager(filepath.Dir(in), logger).SummaryPath(in)
	}
	if err := exporter.NewCSVWriter(logger).WriteSummary(out, []dataprocessing.SummaryRow{summary}); err != nil {
		return err
	}

	logger.Info("summary written",
		slog.String("week", week.String()),
		slog.String("path", out))
	return nil
}

// resolveWeek fills in the week bounds and country, preferring explicit flags
// over values parsed from the raw file name.
func resolveWeek(in, since, until, country string) (string, time.Time, time.Time, error) {
	if m := rawNamePattern.FindStringSubmatch(filepath.Base(in)); m != nil {
		if country == "" {
			country = m[1]
		}
		if since == "" {
			since = m[2]
		}
		if until == "" {
			until = m[3]
		}
	}
	if since == "" || until == "" {
		return "", time.Time{}, time.Time{}, fmt.Errorf(
			"week bounds not in file name; pass -since and -until")
	}
	if country == "" {
		country = "US"
	}

	start, err := time.Parse("2006-01-02", since)
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("invalid -since %q: %w", since, err)
	}
	end, err := time.Parse("2006-01-02", until)
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("invalid -until %q: %w", until, err)
	}
	if end.Before(start) {
		return "", time.Time{}, time.Time{}, fmt.Errorf("until %s precedes since %s", until, since)
	}
	return country, start, end, nil
}
