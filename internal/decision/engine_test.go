package decision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimata/unit-cooler/internal/errs"
	"github.com/kimata/unit-cooler/internal/model"
)

func ptr(f float64) *float64 { return &f }

func snapshotWith(outdoorTemp *float64, powers []*float64, humi, solarRad, lux, rain *float64) model.SenseSnapshot {
	snap := model.SenseSnapshot{}
	if outdoorTemp != nil {
		snap[model.KindTemp] = []model.SensorReading{{Kind: model.KindTemp, Value: outdoorTemp}}
	}
	for _, p := range powers {
		snap[model.KindPower] = append(snap[model.KindPower], model.SensorReading{Kind: model.KindPower, Value: p})
	}
	if humi != nil {
		snap[model.KindHumi] = []model.SensorReading{{Kind: model.KindHumi, Value: humi}}
	}
	if solarRad != nil {
		snap[model.KindSolarRad] = []model.SensorReading{{Kind: model.KindSolarRad, Value: solarRad}}
	}
	if lux != nil {
		snap[model.KindLux] = []model.SensorReading{{Kind: model.KindLux, Value: lux}}
	}
	if rain != nil {
		snap[model.KindRain] = []model.SensorReading{{Kind: model.KindRain, Value: rain}}
	}
	return snap
}

func TestDecideNoPowerReadingsIsFullyIdle(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(ptr(30), nil, ptr(50), ptr(100), ptr(500), ptr(0))

	idx, cooler, outdoor, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, model.ModeIndex(0), idx)
	assert.Equal(t, 0, cooler.Status)
	assert.Equal(t, 0, outdoor.Status)
}

func TestDecideMissingOutdoorTempWithPowerPresentFails(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(nil, []*float64{ptr(1000)}, ptr(50), ptr(100), ptr(500), ptr(0))

	_, _, _, err := Decide(snap, th)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrOutdoorTempUnknown))
}

func TestDecideAbsentPowerReadingDegradesToOffIndividually(t *testing.T) {
	th := model.DefaultThresholds()
	// One unit reporting nil (absent), one at full power: absent must not
	// fail the whole step, and must not count toward any bucket.
	snap := snapshotWith(ptr(30), []*float64{nil, ptr(1000)}, ptr(50), ptr(100), ptr(500), ptr(0))

	_, cooler, _, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, 4, cooler.Status, "single full unit, absent unit treated as off")
}

func TestDecideTwoUnitsFullIsMaxCoolerScore(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(ptr(30), []*float64{ptr(1000), ptr(1200)}, ptr(50), ptr(100), ptr(500), ptr(0))

	_, cooler, _, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, 6, cooler.Status)
}

func TestDecideMissingOutdoorWeatherDataStopsCooling(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(ptr(30), []*float64{ptr(1000)}, nil, ptr(100), ptr(500), ptr(0))

	idx, _, outdoor, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, -10, outdoor.Status)
	assert.Equal(t, model.ModeIndex(0), idx, "cooler(4) + outdoor(-10) clamps to 0")
}

func TestDecideBlazingHotBoostsIndexAboveCoolerOnly(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(ptr(35), []*float64{ptr(1000)}, ptr(40), ptr(400), ptr(2000), ptr(0))

	idx, cooler, outdoor, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, 3, outdoor.Status)
	assert.Equal(t, model.ModeIndex(cooler.Status+3), idx)
}

func TestDecideClampsToTopOfProfileTable(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(ptr(35), []*float64{ptr(1000), ptr(1200)}, ptr(40), ptr(400), ptr(2000), ptr(0))

	idx, _, _, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, model.ModeIndex(model.ProfileCount-1), idx)
}

func TestDecideRainOverridesEverythingElse(t *testing.T) {
	th := model.DefaultThresholds()
	snap := snapshotWith(ptr(35), []*float64{ptr(1000)}, ptr(40), ptr(400), ptr(2000), ptr(5))

	_, _, outdoor, err := Decide(snap, th)
	require.NoError(t, err)
	assert.Equal(t, -4, outdoor.Status)
}
