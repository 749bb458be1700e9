package acquisition

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanperf/internal/weeks"
)

func mustWeek(t *testing.T, start, end string) weeks.Range {
	t.Helper()
	s, err := time.Parse("2006-01-02", start)
	require.NoError(t, err)
	e, err := time.Parse("2006-01-02", end)
	require.NoError(t, err)
	return weeks.Range{Start: s, End: e}
}

func TestBuildReportURL(t *testing.T) {
	week := mustWeek(t, "2025-09-08", "2025-09-14")
	raw := BuildReportURL("admin.shopify.com", "acme-co", week, "US")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "admin.shopify.com", u.Host)
	assert.Equal(t, "/store/acme-co/marketing/reports/channels", u.Path)

	q := u.Query()
	assert.Equal(t, "last_click_non_direct", q.Get("attributionModel"))
	assert.Equal(t, "2025-09-08", q.Get("since"))
	assert.Equal(t, "2025-09-14", q.Get("until"))
	assert.Equal(t, "sessions", q.Get("sortColumn"))
	assert.Equal(t, "desc", q.Get("sortDirection"))
	assert.Equal(t, "US", q.Get("country"))
}

func TestBuildReportURL_NoCountryFilter(t *testing.T) {
	week := mustWeek(t, "2025-09-01", "2025-09-07")
	raw := BuildReportURL("admin.shopify.com", "acme-co", week, "")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.False(t, u.Query().Has("country"))
}

func TestBuildStoreHomeURL(t *testing.T) {
	assert.Equal(t, "https://admin.shopify.com/store/acme-co",
		BuildStoreHomeURL("admin.shopify.com", "acme-co"))
}
