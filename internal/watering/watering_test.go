package watering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeAppliesUnitPrice(t *testing.T) {
	entries := Summarize([]float64{10, 0, 5.5}, 0.35)

	require.Len(t, entries, 3)
	assert.InDelta(t, 3.5, entries[0].Price, 0.001)
	assert.Equal(t, 0.0, entries[1].Amount)
	assert.InDelta(t, 1.925, entries[2].Price, 0.001)
}

func TestFakeSourceTruncatesToAvailableDays(t *testing.T) {
	f := Fake{Totals: []float64{1, 2, 3}}
	totals, err := f.DailyTotals(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, totals, 3)
}
