package tabular

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureAll(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.EnsureAll())

	for _, table := range RegisteredTables() {
		require.FileExists(t, s.Path(table))
		header, err := s.header(table)
		require.NoError(t, err)
		require.Equal(t, Schemas[table], header)
	}

	// Re-running leaves existing files alone.
	require.NoError(t, s.Append(TableBreedingBatches, Record{"batch_id": "b1"}))
	require.NoError(t, s.EnsureAll())
	recs, err := s.Load(TableBreedingBatches)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestValidateStructure(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Append("obs", Record{"species": "Clipper", "quantity": "5"}))

	v := s.ValidateStructure("obs", []string{"species", "quantity"})
	require.True(t, v.Valid)
	require.Empty(t, v.MissingColumns)
	require.Equal(t, 1, v.RecordCount)

	v = s.ValidateStructure("obs", []string{"species", "location"})
	require.False(t, v.Valid)
	require.Equal(t, []string{"location"}, v.MissingColumns)
	require.Equal(t, []string{"quantity"}, v.ExtraColumns)

	v = s.ValidateStructure("absent", []string{"species"})
	require.False(t, v.Valid)
	require.Equal(t, []string{"species"}, v.MissingColumns)
}
