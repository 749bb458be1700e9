// Package sheets hands completed summary rows to a Google Sheets tab. Two
// modes exist: overwrite clears the tab and writes header plus rows; append
// adds rows after the last existing one, writing the header only when the
// tab is empty. Within one run at most one overwrite happens (the first
// successful week); later weeks always append, so a run can never produce
// duplicate headers.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"chanperf/internal/dataprocessing"
	"chanperf/internal/errors"
)

// Mode selects how the first successful week of a run lands on the tab.
type Mode string

const (
	ModeAppend    Mode = "append"
	ModeOverwrite Mode = "overwrite"
)

// API is the narrow spreadsheet surface the syncer needs. The production
// implementation wraps the Google Sheets service; tests substitute a fake.
type API interface {
	TabTitles(ctx context.Context) ([]string, error)
	AddTab(ctx context.Context, title string) error
	Clear(ctx context.Context, rng string) error
	Update(ctx context.Context, rng string, values [][]any) error
	Append(ctx context.Context, rng string, values [][]any) error
	Get(ctx context.Context, rng string) ([][]any, error)
}

// Syncer pushes summary rows to one spreadsheet tab.
type Syncer struct {
	api    API
	tab    string
	mode   Mode
	logger *slog.Logger

	mu         sync.Mutex
	tabEnsured bool
	overwrote  bool
}

// NewSyncer creates a syncer for the given tab. The configured mode applies
// to the first row of the run only; every later row appends.
func NewSyncer(api API, tab string, mode Mode, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{api: api, tab: tab, mode: mode, logger: logger}
}

// PushRow writes one summary row to the tab, creating the tab if needed.
// Failures come back as SyncFailed; the caller's local artifacts remain the
// durable record.
func (s *Syncer) PushRow(ctx context.Context, row dataprocessing.SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTab(ctx); err != nil {
		return errors.NewSyncFailed(s.tab, err)
	}

	headerAndRow := [][]any{toValues(dataprocessing.SummaryHeader), toValues(row.Record())}
	rowOnly := [][]any{toValues(row.Record())}

	if s.mode == ModeOverwrite && !s.overwrote {
		if err := s.api.Clear(ctx, s.tab+"!A:ZZ"); err != nil {
			return errors.NewSyncFailed(s.tab, fmt.Errorf("clear: %w", err))
		}
		if err := s.api.Update(ctx, s.tab+"!A1", headerAndRow); err != nil {
			return errors.NewSyncFailed(s.tab, fmt.Errorf("overwrite: %w", err))
		}
		s.overwrote = true
		s.logger.Info("uploaded summary row (overwrite)", slog.String("tab", s.tab))
		return nil
	}

	firstCell, err := s.api.Get(ctx, s.tab+"!A1:A1")
	if err != nil {
		return errors.NewSyncFailed(s.tab, fmt.Errorf("probe first cell: %w", err))
	}
	if len(firstCell) == 0 {
		// Empty tab: the header travels with the first row.
		if err := s.api.Update(ctx, s.tab+"!A1", headerAndRow); err != nil {
			return errors.NewSyncFailed(s.tab, fmt.Errorf("write header: %w", err))
		}
		s.logger.Info("uploaded summary row (new tab)", slog.String("tab", s.tab))
		return nil
	}

	if err := s.api.Append(ctx, s.tab+"!A1", rowOnly); err != nil {
		return errors.NewSyncFailed(s.tab, fmt.Errorf("append: %w", err))
	}
	s.logger.Info("appended summary row", slog.String("tab", s.tab))
	return nil
}

func (s *Syncer) ensureTab(ctx context.Context) error {
	if s.tabEnsured {
		return nil
	}
	titles, err := s.api.TabTitles(ctx)
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}
	for _, title := range titles {
		if title == s.tab {
			s.tabEnsured = true
			return nil
		}
	}
	if err := s.api.AddTab(ctx, s.tab); err != nil {
		return fmt.Errorf("create tab %q: %w", s.tab, err)
	}
	s.logger.Info("created spreadsheet tab", slog.String("tab", s.tab))
	s.tabEnsured = true
	return nil
}

func toValues(record []string) []any {
	values := make([]any, len(record))
	for i, cell := range record {
		values[i] = cell
	}
	return values
}

// googleAPI adapts the Google Sheets service to the API interface.
type googleAPI struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

// NewGoogleAPI builds the production API backed by the Sheets service,
// authenticating with the credentials file (service account JSON).
func NewGoogleAPI(ctx context.Context, spreadsheetID, credentialsFile string) (API, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &googleAPI{service: service, spreadsheetID: spreadsheetID}, nil
}

func (g *googleAPI) TabTitles(ctx context.Context) ([]string, error) {
	meta, err := g.service.Spreadsheets.Get(g.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(meta.Sheets))
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil {
			titles = append(titles, sheet.Properties.Title)
		}
	}
	return titles, nil
}

func (g *googleAPI) AddTab(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	_, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (g *googleAPI) Clear(ctx context.Context, rng string) error {
	_, err := g.service.Spreadsheets.Values.Clear(g.spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *googleAPI) Update(ctx context.Context, rng string, values [][]any) error {
	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, rng, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (g *googleAPI) Append(ctx context.Context, rng string, values [][]any) error {
	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, rng, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *googleAPI) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
