package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanperf/internal/dataprocessing"
	"chanperf/internal/errors"
)

// fakeAPI is an in-memory spreadsheet: one tab, rows of values.
type fakeAPI struct {
	tabs    map[string][][]any
	fail    map[string]error
	calls   []string
	cleared int
}

func newFakeAPI(existingTabs ...string) *fakeAPI {
	tabs := make(map[string][][]any)
	for _, tab := range existingTabs {
		tabs[tab] = nil
	}
	return &fakeAPI{tabs: tabs, fail: make(map[string]error)}
}

func (f *fakeAPI) record(op string) error {
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeAPI) TabTitles(ctx context.Context) ([]string, error) {
	if err := f.record("tabs"); err != nil {
		return nil, err
	}
	var titles []string
	for title := range f.tabs {
		titles = append(titles, title)
	}
	return titles, nil
}

func (f *fakeAPI) AddTab(ctx context.Context, title string) error {
	if err := f.record("add_tab"); err != nil {
		return err
	}
	f.tabs[title] = nil
	return nil
}

func (f *fakeAPI) Clear(ctx context.Context, rng string) error {
	if err := f.record("clear"); err != nil {
		return err
	}
	f.cleared++
	f.tabs[tabOf(rng)] = nil
	return nil
}

func (f *fakeAPI) Update(ctx context.Context, rng string, values [][]any) error {
	if err := f.record("update"); err != nil {
		return err
	}
	f.tabs[tabOf(rng)] = append([][]any{}, values...)
	return nil
}

func (f *fakeAPI) Append(ctx context.Context, rng string, values [][]any) error {
	if err := f.record("append"); err != nil {
		return err
	}
	tab := tabOf(rng)
	f.tabs[tab] = append(f.tabs[tab], values...)
	return nil
}

func (f *fakeAPI) Get(ctx context.Context, rng string) ([][]any, error) {
	if err := f.record("get"); err != nil {
		return nil, err
	}
	rows := f.tabs[tabOf(rng)]
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[:1], nil
}

func tabOf(rng string) string {
	for i := range rng {
		if rng[i] == '!' {
			return rng[:i]
		}
	}
	return rng
}

func sampleRow(week string) dataprocessing.SummaryRow {
	return dataprocessing.SummaryRow{Month: "September", DatesWeek: week, TotalSales: 100, Country: "US"}
}

func headerCount(rows [][]any) int {
	count := 0
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Month" {
			count++
		}
	}
	return count
}

func TestPushRow_AppendToEmptyTabWritesHeader(t *testing.T) {
	api := newFakeAPI("summary")
	s := NewSyncer(api, "summary", ModeAppend, slog.Default())

	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))

	rows := api.tabs["summary"]
	require.Len(t, rows, 2)
	assert.Equal(t, 1, headerCount(rows))
}

func TestPushRow_AppendToPopulatedTabSkipsHeader(t *testing.T) {
	api := newFakeAPI("summary")
	api.tabs["summary"] = [][]any{{"Month"}, {"September"}}
	s := NewSyncer(api, "summary", ModeAppend, slog.Default())

	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))

	rows := api.tabs["summary"]
	require.Len(t, rows, 3)
	assert.Equal(t, 1, headerCount(rows))
}

func TestPushRow_OverwriteThenAppendSingleHeader(t *testing.T) {
	api := newFakeAPI("summary")
	api.tabs["summary"] = [][]any{{"Month"}, {"stale row"}, {"stale row"}}
	s := NewSyncer(api, "summary", ModeOverwrite, slog.Default())

	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))
	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/15-9/21")))
	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/22-9/28")))

	rows := api.tabs["summary"]
	require.Len(t, rows, 4, "header + three weeks, stale data gone")
	assert.Equal(t, 1, headerCount(rows))
	assert.Equal(t, 1, api.cleared, "only the first week overwrites")
}

func TestPushRow_CreatesMissingTab(t *testing.T) {
	api := newFakeAPI("other")
	s := NewSyncer(api, "summary", ModeAppend, slog.Default())

	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))

	assert.Contains(t, api.calls, "add_tab")
	assert.Len(t, api.tabs["summary"], 2)
}

func TestPushRow_EnsureTabOnlyOnce(t *testing.T) {
	api := newFakeAPI("summary")
	s := NewSyncer(api, "summary", ModeAppend, slog.Default())

	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))
	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/15-9/21")))

	tabsCalls := 0
	for _, call := range api.calls {
		if call == "tabs" {
			tabsCalls++
		}
	}
	assert.Equal(t, 1, tabsCalls)
}

func TestPushRow_FailureIsSyncFailed(t *testing.T) {
	api := newFakeAPI("summary")
	api.fail["update"] = fmt.Errorf("quota exceeded")
	s := NewSyncer(api, "summary", ModeOverwrite, slog.Default())

	err := s.PushRow(context.Background(), sampleRow("9/8-9/14"))
	require.Error(t, err)
	assert.Equal(t, errors.KindSyncFailed, errors.KindOf(err))
	assert.False(t, errors.IsFatal(err))
}

func TestPushRow_OverwriteNotLatchedOnFailure(t *testing.T) {
	api := newFakeAPI("summary")
	api.fail["clear"] = fmt.Errorf("transient")
	s := NewSyncer(api, "summary", ModeOverwrite, slog.Default())

	require.Error(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))

	// Next attempt still gets the overwrite semantics.
	delete(api.fail, "clear")
	require.NoError(t, s.PushRow(context.Background(), sampleRow("9/8-9/14")))
	assert.Equal(t, 1, api.cleared)
	assert.Equal(t, 1, headerCount(api.tabs["summary"]))
}
