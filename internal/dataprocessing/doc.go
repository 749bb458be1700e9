// Package dataprocessing turns a raw channel-performance export into one
// fixed-schema weekly summary row.
//
// The package is split along the three deterministic transformations:
//
//   - parser.go reads the raw CSV export and normalizes decimal-like strings
//     with a tolerant numeric parser that never fails.
//   - classifier.go maps each raw row's (referring platform, channel, type)
//     triple to exactly one of seven canonical buckets.
//   - summarizer.go groups, sums and derives the weekly summary row,
//     including the pipe-delimited misc notes field and gross profit margin.
//
// Everything here is pure with respect to its inputs: re-running any
// transformation on the same data produces identical output.
package dataprocessing
