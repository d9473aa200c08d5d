package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func bootstrap(f *Filter, values []float64) {
	for _, v := range values {
		f.Accept(v, time.Now())
	}
}

func TestBootstrapAcceptsEveryReading(t *testing.T) {
	f := New(DefaultConfig())
	for i, v := range []float64{20, 20.1, 19.9, 20.2, 20.0, 20.1} {
		used, disabled := f.Accept(v, time.Now())
		assert.Equal(t, v, used, "bootstrap reading %d should pass through unchanged", i)
		assert.False(t, disabled)
	}
}

func TestLargeJumpAfterBootstrapIsRejected(t *testing.T) {
	f := New(DefaultConfig())
	bootstrap(f, []float64{20, 20.1, 19.9, 20.2, 20.0, 20.1})

	used, disabled := f.Accept(50.0, time.Now())
	assert.False(t, disabled)
	assert.InDelta(t, 20.1, used, 0.01, "anomalous reading must fall back to the last good value")
}

func TestChannelDisablesAfterSustainedAnomalies(t *testing.T) {
	f := New(DefaultConfig())
	bootstrap(f, []float64{20, 20.1, 19.9, 20.2, 20.0, 20.1})

	var disabled bool
	for i := 0; i < 10; i++ {
		// Alternate direction so it never looks monotonic/gradual.
		v := 60.0
		if i%2 == 1 {
			v = -10.0
		}
		_, disabled = f.Accept(v, time.Now())
	}
	assert.True(t, disabled, "repeated wild swings must eventually disable the channel")
}

func TestNormalReadingWithinDeltaIsAccepted(t *testing.T) {
	f := New(DefaultConfig())
	bootstrap(f, []float64{20, 20.1, 19.9, 20.2, 20.0, 20.1})

	used, disabled := f.Accept(21.0, time.Now())
	assert.False(t, disabled)
	assert.Equal(t, 21.0, used)
}
