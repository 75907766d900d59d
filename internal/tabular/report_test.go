package tabular

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	sum, ok := Summarize([]string{"1", "2", "3", "4", "5"})
	require.True(t, ok)
	require.Equal(t, 5, sum.Count)
	require.InDelta(t, 3.0, sum.Mean, 1e-9)
	require.InDelta(t, 1.5811388, sum.Std, 1e-6)
	require.Equal(t, 1.0, sum.Min)
	require.Equal(t, 2.0, sum.Q1)
	require.Equal(t, 3.0, sum.Median)
	require.Equal(t, 4.0, sum.Q3)
	require.Equal(t, 5.0, sum.Max)
}

func TestSummarizeInterpolatesQuartiles(t *testing.T) {
	sum, ok := Summarize([]string{"1", "2", "3", "4"})
	require.True(t, ok)
	require.InDelta(t, 1.75, sum.Q1, 1e-9)
	require.InDelta(t, 2.5, sum.Median, 1e-9)
	require.InDelta(t, 3.25, sum.Q3, 1e-9)
}

func TestSummarizeSkipsEmptyValues(t *testing.T) {
	sum, ok := Summarize([]string{"10", "", " ", "20"})
	require.True(t, ok)
	require.Equal(t, 2, sum.Count)
	require.InDelta(t, 15.0, sum.Mean, 1e-9)
}

func TestSummarizeRejectsMixedColumn(t *testing.T) {
	_, ok := Summarize([]string{"10", "Clipper"})
	require.False(t, ok)

	_, ok = Summarize([]string{"", ""})
	require.False(t, ok)
}

func TestSummarizeSingleValue(t *testing.T) {
	sum, ok := Summarize([]string{"7"})
	require.True(t, ok)
	require.Equal(t, 0.0, sum.Std)
	require.Equal(t, 7.0, sum.Median)
}

func TestNullAndUniqueCounts(t *testing.T) {
	cols := []string{"species", "notes"}
	recs := []Record{
		{"species": "Clipper", "notes": ""},
		{"species": "Clipper", "notes": "  "},
		{"species": "Atlas", "notes": "healthy"},
	}
	nulls := NullCounts(cols, recs)
	require.Equal(t, 0, nulls["species"])
	require.Equal(t, 2, nulls["notes"])

	uniques := UniqueCounts(cols, recs)
	require.Equal(t, 2, uniques["species"])
}

func TestDuplicateRows(t *testing.T) {
	cols := []string{"a", "b"}
	recs := []Record{
		{"a": "1", "b": "2"},
		{"a": "1", "b": "2"},
		{"a": "1", "b": "3"},
	}
	require.Equal(t, 1, DuplicateRows(cols, recs))
	require.Equal(t, 0, DuplicateRows(cols, recs[1:]))
}

func TestReport(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("obs", Record{"species": "Clipper", "quantity": "5"}))
	require.NoError(t, s.Append("obs", Record{"species": "Atlas", "quantity": "10"}))
	require.NoError(t, s.Append("obs", Record{"species": "Atlas", "quantity": ""}))

	report, err := s.Report("obs")
	require.NoError(t, err)
	require.Equal(t, 3, report.Records)
	require.Equal(t, 1, report.NullCounts["quantity"])
	require.InDelta(t, 33.33, report.NullPercentages["quantity"], 0.01)
	require.Contains(t, report.NumericStats, "quantity")
	require.NotContains(t, report.NumericStats, "species")
	require.Len(t, report.Head, 3)
}

func TestReportAbsentTableUsesSchemaColumns(t *testing.T) {
	s := newStore(t)
	report, err := s.Report(TableBreedingBatches)
	require.NoError(t, err)
	require.Equal(t, 0, report.Records)
	require.Equal(t, Schemas[TableBreedingBatches], report.Columns)
}
