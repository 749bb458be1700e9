package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanperf/internal/weeks"
)

func testWeek() weeks.Range {
	return weeks.Range{
		Start: time.Date(2025, time.September, 8, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.September, 14, 0, 0, 0, 0, time.UTC),
	}
}

func fixedNow() time.Time {
	return time.Date(2025, time.September, 15, 10, 30, 0, 0, time.UTC)
}

func TestAggregate_WorkedExample(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	rows := []RawRow{
		{Channel: "google", Type: "paid", Sales: "$100.00"},
		{Channel: "google", Type: "organic", Sales: "50"},
		{Channel: "direct", Type: "", Sales: "25"},
	}

	row := s.Aggregate(rows, testWeek())

	assert.Equal(t, 100.0, row.GoogleAdsPaidSales)
	assert.Equal(t, 50.0, row.GoogleOrganicSales)
	assert.Equal(t, 25.0, row.DirectOrganicSales)
	assert.Equal(t, 175.0, row.TotalSales)
	assert.Equal(t, 0.0, row.TotalCost)
	assert.Equal(t, 1.0, row.GPM)
	assert.Empty(t, row.MiscNotes)

	assert.Equal(t, "September", row.Month)
	assert.Equal(t, "9/8-9/14", row.DatesWeek)
	assert.Equal(t, "2025-09-15", row.UploadDate)
	assert.Equal(t, "2025-09-08", row.RangeStart)
	assert.Equal(t, "2025-09-14", row.RangeEnd)
	assert.Equal(t, "US", row.Country)
}

func TestAggregate_TotalSalesEqualsBucketSum(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	rows := []RawRow{
		{Channel: "google", Type: "paid", Sales: "33.337", Cost: "10.10"},
		{Channel: "direct", Sales: "12.121"},
		{Channel: "privy", Sales: "7.777", Cost: "1.111"},
		{ReferringPlatform: "facebook", Channel: "social", Type: "paid", Sales: "99.99"},
		{Channel: "attentive", Sales: "5"},
	}

	row := s.Aggregate(rows, testWeek())

	bucketSum := row.DirectOrganicSales + row.GoogleAdsPaidSales + row.GoogleOrganicSales +
		row.AttentiveSMSSales + row.PriveyEmailSales + row.ActiveCampaignSales + row.OtherMiscSales
	assert.InDelta(t, row.TotalSales, bucketSum, 0.011)
	assert.InDelta(t, 11.21, row.TotalCost, 0.001)
}

func TestAggregate_CostBuckets(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	rows := []RawRow{
		{Channel: "google", Type: "paid", Sales: "200", Cost: "$50.00"},
		{Channel: "privy", Sales: "80", Cost: "8"},
		{Channel: "attentive", Sales: "40", Cost: "4"},
		{Channel: "direct", Sales: "100", Cost: "1"},
	}

	row := s.Aggregate(rows, testWeek())

	assert.Equal(t, 50.0, row.GoogleAdsPaidCost)
	assert.Equal(t, 8.0, row.PriveyEmailCost)
	assert.Equal(t, 4.0, row.AttentiveSMSCost)
	// Total cost covers every bucket, including ones without a cost column.
	assert.Equal(t, 63.0, row.TotalCost)
	assert.InDelta(t, 0.85, row.GPM, 0.0001)
}

func TestAggregate_ZeroSalesZeroGPM(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)

	row := s.Aggregate(nil, testWeek())

	assert.Equal(t, 0.0, row.TotalSales)
	assert.Equal(t, 0.0, row.GPM)
	assert.Empty(t, row.MiscNotes)
}

func TestAggregate_MiscNotes(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	rows := []RawRow{
		{Channel: "facebook", Type: "paid", Sales: "1200.50"},
		{Channel: "facebook", Type: "paid", Sales: "100"},
		{Channel: "bing", Type: "organic", Sales: "300"},
		{Channel: "tiktok", Type: "paid", Sales: "0"},
		{Channel: "pinterest", Type: "organic", Sales: "-10"},
	}

	row := s.Aggregate(rows, testWeek())

	assert.Equal(t, "facebook (paid) $1,300.50 | bing (organic) $300.00", row.MiscNotes)
}

func TestAggregate_MiscNotesCappedAtTwelve(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	var rows []RawRow
	for i := 0; i < 20; i++ {
		rows = append(rows, RawRow{
			Channel: fmt.Sprintf("channel%02d", i),
			Type:    "paid",
			Sales:   fmt.Sprintf("%d", 1000-i),
		})
	}

	row := s.Aggregate(rows, testWeek())

	parts := splitNotes(row.MiscNotes)
	require.Len(t, parts, 12)
	// Descending by sales.
	assert.Contains(t, parts[0], "channel00")
	assert.Contains(t, parts[11], "channel11")
}

func TestAggregate_MiscNotesEmptyWithoutPositiveSales(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	rows := []RawRow{
		{Channel: "facebook", Type: "paid", Sales: "0"},
		{Channel: "bing", Type: "organic", Sales: "—"},
	}

	row := s.Aggregate(rows, testWeek())

	assert.Empty(t, row.MiscNotes)
}

func TestAggregate_Idempotent(t *testing.T) {
	s := NewSummarizer(slog.Default(), "US", fixedNow)
	rows := []RawRow{
		{Channel: "google", Type: "paid", Sales: "$1,000.10", Cost: "250"},
		{Channel: "snapchat", Type: "paid", Sales: "77.7"},
	}

	first := s.Aggregate(rows, testWeek())
	second := s.Aggregate(rows, testWeek())

	assert.Equal(t, first, second)
}

func TestSummaryRow_Record(t *testing.T) {
	s := NewSummarizer(slog.Default(), "GB", fixedNow)
	rows := []RawRow{
		{Channel: "google", Type: "paid", Sales: "1234.567", Cost: "100"},
	}

	record := s.Aggregate(rows, testWeek()).Record()

	require.Len(t, record, len(SummaryHeader))
	assert.Equal(t, "September", record[0])
	assert.Equal(t, "9/8-9/14", record[1])
	assert.Equal(t, "1234.57", record[3], "GoogleAdsPaid_Sales")
	assert.Equal(t, "1234.57", record[9], "Tot_Sales")
	assert.Equal(t, "100.00", record[10], "GoogleAdsPaid_Cost")
	assert.Equal(t, "0.9190", record[14], "GPM")
	assert.Equal(t, "GB", record[19])
}

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{5, "5.00"},
		{999.9, "999.90"},
		{1000, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{-1234.5, "-1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, money(tt.in))
		})
	}
}

func splitNotes(notes string) []string {
	if notes == "" {
		return nil
	}
	return strings.Split(notes, " | ")
}
