package flowmonitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimata/unit-cooler/internal/model"
)

type fakeSensor struct {
	reads   []*float64
	idx     int
	stopped int
}

func (f *fakeSensor) Read(_ context.Context, _ bool) (*float64, error) {
	if f.idx >= len(f.reads) {
		return f.reads[len(f.reads)-1], nil
	}
	v := f.reads[f.idx]
	f.idx++
	return v, nil
}

func (f *fakeSensor) Stop(_ context.Context) error {
	f.stopped++
	return nil
}

type fakeValve struct {
	status model.ValveStatus
}

func (f *fakeValve) GetStatus() (model.ValveStatus, error) { return f.status, nil }

type fakeHazard struct {
	reasons []string
}

func (f *fakeHazard) Notify(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return nil
}

func ptr(f float64) *float64 { return &f }

func defaultConfig() Config {
	return Config{OnMax: []float64{5, 6, 7, 8}, OnMin: 0.5, OffMax: 0.2, PowerOffSec: 300, Giveup: 10}
}

func TestTickFlagsLeakWhenFlowExceedsOnMax(t *testing.T) {
	valve := &fakeValve{status: model.ValveStatus{State: model.ValveOpen, DurationSec: 10}}
	sensor := &fakeSensor{reads: []*float64{ptr(10.0)}}
	hz := &fakeHazard{}

	m := New(sensor, valve, hz, defaultConfig())
	require.NoError(t, m.Tick(context.Background()))

	assert.Len(t, hz.reasons, 1)
}

func TestTickDoesNotFlagLeakWithinEnvelope(t *testing.T) {
	valve := &fakeValve{status: model.ValveStatus{State: model.ValveOpen, DurationSec: 3}}
	sensor := &fakeSensor{reads: []*float64{ptr(3.0)}}
	hz := &fakeHazard{}

	m := New(sensor, valve, hz, defaultConfig())
	require.NoError(t, m.Tick(context.Background()))

	assert.Empty(t, hz.reasons)
}

func TestUnreachableCounterResetsOnFirstGoodRead(t *testing.T) {
	valve := &fakeValve{status: model.ValveStatus{State: model.ValveOpen, DurationSec: 1}}
	sensor := &fakeSensor{reads: []*float64{nil, nil, nil, ptr(1.0)}}
	hz := &fakeHazard{}
	cfg := defaultConfig()
	cfg.Giveup = 2

	m := New(sensor, valve, hz, cfg)
	require.NoError(t, m.Tick(context.Background()))
	require.NoError(t, m.Tick(context.Background()))
	assert.Equal(t, 2, m.flowUnknownTicks)

	require.NoError(t, m.Tick(context.Background()))
	require.NoError(t, m.Tick(context.Background()))
	assert.Equal(t, 0, m.flowUnknownTicks, "a non-absent read must reset the counter, not just reduce it")
}

func TestStuckOpenHazardWhenClosedButFlowing(t *testing.T) {
	valve := &fakeValve{status: model.ValveStatus{State: model.ValveClose, DurationSec: 200}}
	sensor := &fakeSensor{reads: []*float64{ptr(1.0)}}
	hz := &fakeHazard{}

	m := New(sensor, valve, hz, defaultConfig())
	m.lastFlow = 1.0 // prior non-zero flow forces a read while closed
	require.NoError(t, m.Tick(context.Background()))

	assert.Len(t, hz.reasons, 1)
}

func TestQuietShutdownStopsSensor(t *testing.T) {
	valve := &fakeValve{status: model.ValveStatus{State: model.ValveClose, DurationSec: 301}}
	sensor := &fakeSensor{reads: []*float64{ptr(0.0)}}
	hz := &fakeHazard{}

	m := New(sensor, valve, hz, defaultConfig())
	m.lastFlow = 1.0
	require.NoError(t, m.Tick(context.Background()))

	assert.Equal(t, 1, sensor.stopped)
}
