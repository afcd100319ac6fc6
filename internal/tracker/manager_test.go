package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StrengthSentinel/internal/model"
)

func bundle(trend model.Trend, rec model.Recommendation, n float64) *model.Bundle {
	return &model.Bundle{
		Symbol:    "600519",
		Benchmark: model.Benchmark{ID: "000001"},
		Latest:    model.Latest{Date: model.NewDate(2024, 3, 1), Normalized: n},
		Analysis:  model.AnalysisResult{Trend: trend, Recommendation: rec},
	}
}

func TestObserve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	_, changed := m.Observe(bundle(model.TrendSideways, model.RecommendNeutral, 100))
	assert.False(t, changed, "first observation")

	_, changed = m.Observe(bundle(model.TrendSideways, model.RecommendNeutral, 101))
	assert.False(t, changed)

	prev, changed := m.Observe(bundle(model.TrendStrongUp, model.RecommendNeutral, 105))
	assert.True(t, changed)
	assert.Equal(t, model.TrendSideways, prev.Trend)
	assert.Equal(t, 101.0, prev.Normalized)

	m.MarkRun()

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	state := reloaded.GetState()
	assert.Equal(t, 1, state.Runs)
	require.Contains(t, state.Entries, "600519")
	assert.Equal(t, model.TrendStrongUp, state.Entries["600519"].Trend)
	assert.Equal(t, "2024-03-01", state.Entries["600519"].AsOf.String())

	reloaded.Forget("600519")
	assert.Empty(t, reloaded.GetState().Entries)
}

func TestLoadState_Missing(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.NotNil(t, state.Entries)
	assert.Equal(t, 0, state.Runs)
}
