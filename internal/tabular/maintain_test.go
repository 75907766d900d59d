package tabular

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackup(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("sales", Record{"species": "Clipper", "quantity": "5"}))

	path, err := s.Backup("sales", "snap")
	require.NoError(t, err)
	require.FileExists(t, path)

	original, err := os.ReadFile(s.Path("sales"))
	require.NoError(t, err)
	copied, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, copied)
}

func TestBackupAbsentTable(t *testing.T) {
	s := newStore(t)
	_, err := s.Backup("absent", "")
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("a", Record{"species": "Clipper", "quantity": "5"}))
	require.NoError(t, s.Append("b", Record{"species": "Atlas", "location": "north"}))

	require.NoError(t, s.Merge([]string{"a", "b"}, "merged", false))

	header, err := s.header("merged")
	require.NoError(t, err)
	// Union header in first-seen order across sources.
	require.Equal(t, []string{"quantity", "species", "location"}, header)

	recs, err := s.Load("merged")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "", recs[0]["location"])
}

func TestMergeDedupe(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("a", Record{"species": "Clipper", "quantity": "5"}))
	require.NoError(t, s.Append("b", Record{"species": "Clipper", "quantity": "5"}))

	require.NoError(t, s.Merge([]string{"a", "b"}, "merged", true))

	recs, err := s.Load("merged")
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestMergeNothing(t *testing.T) {
	s := newStore(t)
	require.ErrorIs(t, s.Merge([]string{"x", "y"}, "merged", false), ErrNothingToMerge)
}

func TestCleanupAgeGate(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("old", Record{"species": "Clipper"}))
	require.NoError(t, s.Append("fresh", Record{"species": "Atlas"}))

	// Age the first table past the cutoff.
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(s.Path("old"), stale, stale))

	res := s.Cleanup([]string{"old", "fresh", "absent"}, 24*time.Hour)
	require.Equal(t, 3, res.Checked)
	require.Equal(t, 1, res.Cleaned)
	require.Equal(t, 0, res.Errors)
	require.Greater(t, res.BytesFreed, int64(0))

	require.NoFileExists(t, s.Path("old"))
	require.FileExists(t, s.Path("old")+".cleanup.bak")
	require.FileExists(t, s.Path("fresh"))
}

func TestClean(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("obs", Record{"species": " Clipper ", "quantity": "5"}))
	require.NoError(t, s.Append("obs", Record{"species": "Clipper", "quantity": "5"}))
	require.NoError(t, s.Append("obs", Record{"species": " ", "quantity": ""}))

	remaining, err := s.Clean("obs", nil)
	require.NoError(t, err)
	// Whitespace strip collapses the first two rows into duplicates and
	// empties the third.
	require.Equal(t, 1, remaining)

	recs, err := s.Load("obs")
	require.NoError(t, err)
	require.Equal(t, "Clipper", recs[0]["species"])
}

func TestCleanSingleOp(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("obs", Record{"species": " Clipper ", "quantity": "5"}))
	require.NoError(t, s.Append("obs", Record{"species": "Clipper", "quantity": "5"}))

	remaining, err := s.Clean("obs", []string{CleanStripWhitespace})
	require.NoError(t, err)
	require.Equal(t, 2, remaining)
}

func TestExportFiltered(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("sales", Record{"species": "Clipper", "quantity": "5"}))
	require.NoError(t, s.Append("sales", Record{"species": "Atlas", "quantity": "10"}))

	require.NoError(t, s.ExportFiltered("sales", Criteria{"species": "atlas"}, "atlas_only"))
	recs, err := s.Load("atlas_only")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Atlas", recs[0]["species"])

	err = s.ExportFiltered("sales", Criteria{"species": "monarch"}, "none")
	require.ErrorIs(t, err, ErrNoMatch)
}
