package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulatedCompleteAnalysis(t *testing.T) {
	c := NewSimulated(1)
	out, err := c.Predict(nil, AnalysisComplete)
	require.NoError(t, err)
	require.NotNil(t, out.Species)
	require.NotNil(t, out.Lifecycle)
	require.NotNil(t, out.Disease)
	require.NotNil(t, out.Defect)
}

func TestSimulatedSingleAnalysis(t *testing.T) {
	c := NewSimulated(1)
	out, err := c.Predict(nil, AnalysisLifecycle)
	require.NoError(t, err)
	require.Nil(t, out.Species)
	require.NotNil(t, out.Lifecycle)
	require.Nil(t, out.Disease)
	require.Nil(t, out.Defect)
}

func TestSimulatedConfidenceBandsAndLabels(t *testing.T) {
	c := NewSimulated(42)
	for i := 0; i < 200; i++ {
		out, err := c.Predict(nil, AnalysisComplete)
		require.NoError(t, err)

		require.Contains(t, SpeciesLabels, out.Species.Class)
		require.GreaterOrEqual(t, out.Species.Confidence, 0.75)
		require.Less(t, out.Species.Confidence, 0.98)

		require.Contains(t, LifecycleLabels, out.Lifecycle.Class)
		require.GreaterOrEqual(t, out.Lifecycle.Confidence, 0.80)
		require.Less(t, out.Lifecycle.Confidence, 0.95)

		require.Contains(t, DiseaseLabels, out.Disease.Class)
		require.GreaterOrEqual(t, out.Disease.Confidence, 0.70)
		require.Less(t, out.Disease.Confidence, 0.92)

		require.Contains(t, DefectLabels, out.Defect.Class)
		require.GreaterOrEqual(t, out.Defect.Confidence, 0.75)
		require.Less(t, out.Defect.Confidence, 0.90)
	}
}

func TestSimulatedIsDeterministicPerSeed(t *testing.T) {
	a, err := NewSimulated(7).Predict(nil, AnalysisComplete)
	require.NoError(t, err)
	b, err := NewSimulated(7).Predict(nil, AnalysisComplete)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
