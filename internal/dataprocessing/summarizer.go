package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"chanperf/internal/weeks"
)

// miscNotesCap bounds the number of sub-groups rendered into the misc notes
// field. Misc notes are a lossy human-readable summary, not a queryable
// structure.
const miscNotesCap = 12

// SummaryRow is the fixed-schema weekly performance row. One is produced per
// week range; bucketed sales and the three cost-bearing buckets are rounded
// to 2 decimals, GPM to 4.
type SummaryRow struct {
	Month     string
	DatesWeek string

	DirectOrganicSales  float64
	GoogleAdsPaidSales  float64
	GoogleOrganicSales  float64
	AttentiveSMSSales   float64
	PriveyEmailSales    float64
	ActiveCampaignSales float64
	OtherMiscSales      float64
	TotalSales          float64

	GoogleAdsPaidCost float64
	PriveyEmailCost   float64
	AttentiveSMSCost  float64
	TotalCost         float64

	GPM       float64
	MiscNotes string

	UploadDate string
	RangeStart string
	RangeEnd   string
	Country    string
}

// SummaryHeader is the fixed column order of the summary CSV and spreadsheet
// tab.
var SummaryHeader = []string{
	"Month",
	"Dates/Week",
	"DirectOrganic_Sales",
	"GoogleAdsPaid_Sales",
	"GoogleOrganic_Sales",
	"AttentiveSMS_Sales",
	"PriveyEmail_Sales",
	"ActiveCampaign_Sales",
	"OtherMisc_Sales",
	"Tot_Sales",
	"GoogleAdsPaid_Cost",
	"PriveyEmail_Cost",
	"AttentiveSMS_Cost",
	"Total_Cost",
	"GPM",
	"MISC_Notes",
	"Upload_Date",
	"Range_Start",
	"Range_End",
	"Country",
}

// Record renders the row in SummaryHeader order.
func (r SummaryRow) Record() []string {
	return []string{
		r.Month,
		r.DatesWeek,
		amount(r.DirectOrganicSales),
		amount(r.GoogleAdsPaidSales),
		amount(r.GoogleOrganicSales),
		amount(r.AttentiveSMSSales),
		amount(r.PriveyEmailSales),
		amount(r.ActiveCampaignSales),
		amount(r.OtherMiscSales),
		amount(r.TotalSales),
		amount(r.GoogleAdsPaidCost),
		amount(r.PriveyEmailCost),
		amount(r.AttentiveSMSCost),
		amount(r.TotalCost),
		strconv.FormatFloat(r.GPM, 'f', 4, 64),
		r.MiscNotes,
		r.UploadDate,
		r.RangeStart,
		r.RangeEnd,
		r.Country,
	}
}

// Summarizer aggregates raw export rows into weekly summary rows.
type Summarizer struct {
	logger  *slog.Logger
	country string
	now     func() time.Time
}

// NewSummarizer creates a summarizer stamping rows with the given country
// code. The now function is injectable for deterministic tests; nil means
// time.Now.
func NewSummarizer(logger *slog.Logger, country string, now func() time.Time) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Summarizer{logger: logger, country: country, now: now}
}

// Aggregate reduces one week's raw rows to a single summary row. Rows are
// classified into buckets, sales and cost are group-summed, and the
// OtherMisc group is further sub-grouped into the misc notes field.
// Aggregation is deterministic: the same rows and week always produce an
// identical summary row.
func (s *Summarizer) Aggregate(rows []RawRow, week weeks.Range) SummaryRow {
	salesBy := make(map[Bucket]float64, len(AllBuckets))
	costBy := make(map[Bucket]float64, len(AllBuckets))
	var totalSales, totalCost float64
	var misc []RawRow

	for _, row := range rows {
		sales := ToNumber(row.Sales)
		cost := ToNumber(row.Cost)
		bucket := Classify(row.ReferringPlatform, row.Channel, row.Type)

		salesBy[bucket] += sales
		costBy[bucket] += cost
		totalSales += sales
		totalCost += cost

		if bucket == BucketOtherMisc {
			misc = append(misc, row)
		}
	}

	gpm := 0.0
	if totalSales != 0 {
		gpm = (totalSales - totalCost) / totalSales
	}

	row := SummaryRow{
		Month:     week.Start.Format("January"),
		DatesWeek: week.Label(),

		DirectOrganicSales:  round2(salesBy[BucketDirectOrganic]),
		GoogleAdsPaidSales:  round2(salesBy[BucketGoogleAdsPaid]),
		GoogleOrganicSales:  round2(salesBy[BucketGoogleOrganic]),
		AttentiveSMSSales:   round2(salesBy[BucketAttentiveSMS]),
		PriveyEmailSales:    round2(salesBy[BucketPriveyEmail]),
		ActiveCampaignSales: round2(salesBy[BucketActiveCampaign]),
		OtherMiscSales:      round2(salesBy[BucketOtherMisc]),
		TotalSales:          round2(totalSales),

		GoogleAdsPaidCost: round2(costBy[BucketGoogleAdsPaid]),
		PriveyEmailCost:   round2(costBy[BucketPriveyEmail]),
		AttentiveSMSCost:  round2(costBy[BucketAttentiveSMS]),
		TotalCost:         round2(totalCost),

		GPM:       round4(gpm),
		MiscNotes: buildMiscNotes(misc),

		UploadDate: s.now().Format("2006-01-02"),
		RangeStart: week.Start.Format("2006-01-02"),
		RangeEnd:   week.End.Format("2006-01-02"),
		Country:    s.country,
	}

	s.logger.Info("aggregated weekly summary",
		slog.String("week", week.String()),
		slog.Int("raw_rows", len(rows)),
		slog.Float64("total_sales", row.TotalSales),
		slog.Float64("total_cost", row.TotalCost),
		slog.Float64("gpm", row.GPM))

	return row
}

// buildMiscNotes sub-groups OtherMisc rows by their literal (channel, type)
// pair, sums sales per sub-group, and renders the top contributors in
// descending sales order, positive-sales entries only, capped at
// miscNotesCap.
func buildMiscNotes(rows []RawRow) string {
	if len(rows) == 0 {
		return ""
	}

	sums := make(map[string]float64)
	for _, row := range rows {
		name := fmt.Sprintf("%s (%s)", strings.TrimSpace(row.Channel), strings.TrimSpace(row.Type))
		sums[name] += ToNumber(row.Sales)
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if sums[names[i]] != sums[names[j]] {
			return sums[names[i]] > sums[names[j]]
		}
		return names[i] < names[j]
	})

	var parts []string
	for _, name := range names {
		if len(parts) >= miscNotesCap {
			break
		}
		if sums[name] <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s $%s", name, money(sums[name])))
	}
	return strings.Join(parts, " | ")
}

// amount formats a numeric cell with two decimals and no grouping, so
// spreadsheets and CSV consumers parse it as a number.
func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// money formats a value with two decimals and comma thousands separators.
func money(v float64) string {
	s := strconv.FormatFloat(round2(v), 'f', 2, 64)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
