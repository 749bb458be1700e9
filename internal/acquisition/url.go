package acquisition

import (
	"net/url"

	"chanperf/internal/weeks"
)

// BuildReportURL assembles the channel report URL for one week. The report is
// pinned to last-click non-direct attribution and sorted by sessions so every
// export comes back in the same shape regardless of saved UI preferences.
func BuildReportURL(host, slug string, week weeks.Range, country string) string {
	q := url.Values{}
	q.Set("attributionModel", "last_click_non_direct")
	q.Set("since", week.Start.Format("2006-01-02"))
	q.Set("until", week.End.Format("2006-01-02"))
	q.Set("sortColumn", "sessions")
	q.Set("sortDirection", "desc")
	if country != "" {
		q.Set("country", country)
	}

	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     "/store/" + slug + "/marketing/reports/channels",
		RawQuery: q.Encode(),
	}
	return u.String()
}

// BuildStoreHomeURL points at the store admin home, used to verify that a
// restored session is still authenticated.
func BuildStoreHomeURL(host, slug string) string {
	u := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/store/" + slug,
	}
	return u.String()
}
