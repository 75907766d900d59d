package tabular

import (
	"math"    // Numeric summaries
	"sort"    // Quantiles need sorted values
	"strconv" // Numeric column detection
	"strings"

	"github.com/samber/lo" // Functional passes over loaded tables
)

// NumericSummary describes one numeric column: count of parseable values
// plus mean, sample standard deviation, min, quartiles and max.
type NumericSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Report is a read-side snapshot of a table's content and quality.
type Report struct {
	Table           string                    `json:"table"`
	Records         int                       `json:"records"`
	Columns         []string                  `json:"columns"`
	NullCounts      map[string]int            `json:"null_counts"`
	NullPercentages map[string]float64        `json:"null_percentages"`
	DuplicateRows   int                       `json:"duplicate_rows"`
	UniqueCounts    map[string]int            `json:"unique_counts"`
	NumericStats    map[string]NumericSummary `json:"numeric_stats"`
	Head            []Record                  `json:"head"`
	Tail            []Record                  `json:"tail"`
}

// Report loads a table and computes the full quality report over it.
func (s *Store) Report(table string) (*Report, error) {
	header, recs, err := s.read(table)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = Schemas[table]
	}
	r := &Report{
		Table:           table,
		Records:         len(recs),
		Columns:         header,
		NullCounts:      NullCounts(header, recs),
		NullPercentages: map[string]float64{},
		DuplicateRows:   DuplicateRows(header, recs),
		UniqueCounts:    UniqueCounts(header, recs),
		NumericStats:    map[string]NumericSummary{},
		Head:            Head(recs, 5),
		Tail:            Tail(recs, 5),
	}
	for col, n := range r.NullCounts {
		if len(recs) > 0 {
			r.NullPercentages[col] = math.Round(float64(n)/float64(len(recs))*100*100) / 100
		}
	}
	for _, col := range header {
		if sum, ok := Summarize(Column(recs, col)); ok {
			r.NumericStats[col] = sum
		}
	}
	return r, nil
}

// NullCounts counts empty values per column.
func NullCounts(columns []string, recs []Record) map[string]int {
	out := make(map[string]int, len(columns))
	for _, col := range columns {
		out[col] = lo.CountBy(recs, func(r Record) bool {
			return strings.TrimSpace(r[col]) == ""
		})
	}
	return out
}

// UniqueCounts counts distinct non-empty values per column.
func UniqueCounts(columns []string, recs []Record) map[string]int {
	out := make(map[string]int, len(columns))
	for _, col := range columns {
		vals := lo.FilterMap(recs, func(r Record, _ int) (string, bool) {
			v := r[col]
			return v, v != ""
		})
		out[col] = len(lo.Uniq(vals))
	}
	return out
}

// DuplicateRows counts rows that are exact duplicates of an earlier row,
// full-row equality over the table's columns.
func DuplicateRows(columns []string, recs []Record) int {
	keys := lo.Map(recs, func(r Record, _ int) string { return rowKey(columns, r) })
	return len(keys) - len(lo.Uniq(keys))
}

// Column extracts one column's values in row order.
func Column(recs []Record, col string) []string {
	return lo.Map(recs, func(r Record, _ int) string { return r[col] })
}

// Head returns up to n leading records.
func Head(recs []Record, n int) []Record {
	if len(recs) < n {
		n = len(recs)
	}
	return recs[:n]
}

// Tail returns up to n trailing records.
func Tail(recs []Record, n int) []Record {
	if len(recs) < n {
		n = len(recs)
	}
	return recs[len(recs)-n:]
}

// Summarize computes a NumericSummary over string values. Empty values
// are skipped; the column counts as numeric only if every non-empty
// value parses, so free-text columns stay out of the numeric stats.
func Summarize(values []string) (NumericSummary, bool) {
	var nums []float64
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return NumericSummary{}, false
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return NumericSummary{}, false
	}
	sort.Float64s(nums)

	sum := lo.Sum(nums)
	mean := sum / float64(len(nums))
	variance := 0.0
	for _, n := range nums {
		variance += (n - mean) * (n - mean)
	}
	std := 0.0
	if len(nums) > 1 {
		std = math.Sqrt(variance / float64(len(nums)-1))
	}
	return NumericSummary{
		Count:  len(nums),
		Mean:   mean,
		Std:    std,
		Min:    nums[0],
		Q1:     quantile(nums, 0.25),
		Median: quantile(nums, 0.5),
		Q3:     quantile(nums, 0.75),
		Max:    nums[len(nums)-1],
	}, true
}

// quantile computes a linearly interpolated quantile over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower, upper := int(math.Floor(pos)), int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// rowKey joins a row's values in column order for equality checks.
func rowKey(columns []string, r Record) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = r[col]
	}
	return strings.Join(parts, "\x1f")
}
