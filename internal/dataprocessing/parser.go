package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"chanperf/internal/errors"
)

// RawRow is one record of the raw channel-performance export. Sales and Cost
// keep their original string form; ToNumber normalizes them on demand.
type RawRow struct {
	ReferringPlatform string
	Channel           string
	Type              string
	Sales             string
	Cost              string
}

// Raw export column names, matched case-insensitively.
const (
	colReferringPlatform = "referring platform"
	colChannel           = "channel"
	colType              = "type"
	colSales             = "sales"
	colCost              = "cost"
)

// ToNumber normalizes a decimal-like export cell to a float. Currency symbols
// and thousands separators are stripped; blank cells and the export's various
// null markers ("-", "—", "nan", "none") become 0. Unparsable input also
// becomes 0 rather than failing, because a single malformed cell must never
// sink a whole week.
func ToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "—", "nan", "none":
		return 0
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ReadRawExport parses a raw channel-performance CSV file into rows. Required
// columns are Referring Platform, Channel, Type and Sales; Cost is optional
// and extra columns are ignored. A missing required column is a hard failure
// (KindMissingColumns). Fully-blank rows are discarded.
func ReadRawExport(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw export %s: %w", path, err)
	}
	defer f.Close()

	return ParseRawExport(f)
}

// ParseRawExport parses raw export CSV content from r.
func ParseRawExport(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // the export pads rows inconsistently
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewMissingColumns(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	stripBOM(header)

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	required := []string{colReferringPlatform, colChannel, colType, colSales}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, errors.NewMissingColumns(header)
		}
	}
	costIdx, hasCost := idx[colCost]

	var rows []RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		row := RawRow{
			ReferringPlatform: field(record, idx[colReferringPlatform]),
			Channel:           field(record, idx[colChannel]),
			Type:              field(record, idx[colType]),
			Sales:             field(record, idx[colSales]),
		}
		if hasCost {
			row.Cost = field(record, costIdx)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// stripBOM removes a UTF-8 byte order mark from the first header cell. The
// export tooling adds one for Excel compatibility.
func stripBOM(header []string) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
}
