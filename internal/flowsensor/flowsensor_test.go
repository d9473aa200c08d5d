package flowsensor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDummyReportsNothingUntilPowered(t *testing.T) {
	d := NewDummy(1)

	v, err := d.Read(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = d.Read(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Greater(t, *v, 0.0)
}

func TestDummyStopPowersDown(t *testing.T) {
	d := NewDummy(1)
	_, err := d.Read(context.Background(), true)
	require.NoError(t, err)

	require.NoError(t, d.Stop(context.Background()))

	v, err := d.Read(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, v)
}
