package sensorsource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimata/unit-cooler/internal/model"
)

func constVal(v float64) func(context.Context) (*float64, error) {
	return func(context.Context) (*float64, error) { return &v, nil }
}

func TestFetchAssemblesSnapshotAcrossChannels(t *testing.T) {
	src := New([]Channel{
		{Kind: model.KindTemp, Name: "outdoor", Fetch: constVal(30)},
		{Kind: model.KindHumi, Name: "outdoor", Fetch: constVal(55)},
		{Kind: model.KindPower, Name: "unit_a", Fetch: constVal(900)},
		{Kind: model.KindPower, Name: "unit_b", Fetch: constVal(100)},
	})

	snap, err := src.Fetch(context.Background())
	require.NoError(t, err)

	temp, ok := snap.Outdoor()
	require.True(t, ok)
	assert.Equal(t, 30.0, *temp.Value)
	assert.Len(t, snap[model.KindPower], 2)
}

func TestFetchDegradesFailingChannelToAbsentReading(t *testing.T) {
	src := New([]Channel{
		{Kind: model.KindTemp, Name: "outdoor", Fetch: constVal(30)},
		{Kind: model.KindPower, Name: "unit_a", Fetch: func(context.Context) (*float64, error) {
			return nil, errors.New("upstream timeout")
		}},
	})

	snap, err := src.Fetch(context.Background())
	require.NoError(t, err)

	power, ok := snap.First(model.KindPower)
	require.True(t, ok)
	assert.False(t, power.HasValue())
}
