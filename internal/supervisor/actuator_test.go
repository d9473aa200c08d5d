package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimata/unit-cooler/internal/flowmonitor"
	"github.com/kimata/unit-cooler/internal/hazard"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/valve"
)

func TestEnqueueDropsOldestWhenInboxFull(t *testing.T) {
	a := &ActuatorSupervisor{inbox: make(chan model.ControlMessage, 2)}

	a.enqueue(model.ControlMessage{ModeIndex: 1})
	a.enqueue(model.ControlMessage{ModeIndex: 2})
	a.enqueue(model.ControlMessage{ModeIndex: 3})

	require.Len(t, a.inbox, 2)
	first := <-a.inbox
	second := <-a.inbox
	assert.Equal(t, model.ModeIndex(2), first.ModeIndex, "oldest entry (mode 1) must have been dropped")
	assert.Equal(t, model.ModeIndex(3), second.ModeIndex)
}

type fakeValveOutput struct{ active bool }

func (f *fakeValveOutput) Activate() error                { f.active = true; return nil }
func (f *fakeValveOutput) Deactivate() error              { f.active = false; return nil }
func (f *fakeValveOutput) CurrentlyActive() (bool, error) { return f.active, nil }

type fakeFlowSensor struct{ lpm float64 }

func (f *fakeFlowSensor) Read(_ context.Context, _ bool) (*float64, error) { lpm := f.lpm; return &lpm, nil }
func (f *fakeFlowSensor) Stop(context.Context) error                       { return nil }

type recordingObserver struct{ last model.ActuatorStatus }

func (r *recordingObserver) Observe(status model.ActuatorStatus) { r.last = status }

func TestApplyOncePublishesLastObservedFlowReading(t *testing.T) {
	output := &fakeValveOutput{active: true}
	valveCtrl := valve.New(output, t.TempDir(), nil, true)
	hazardReg := hazard.New(t.TempDir()+"/hazard", nil, nil)

	sensor := &fakeFlowSensor{lpm: 4.2}
	monitor := flowmonitor.New(sensor, valveCtrl, hazardReg, flowmonitor.Config{
		OnMax: []float64{5, 6, 7, 8}, OnMin: 0.5, OffMax: 0.2, PowerOffSec: 300, Giveup: 30,
	})
	require.NoError(t, monitor.Tick(context.Background()))

	observer := &recordingObserver{}
	a := &ActuatorSupervisor{valveCtrl: valveCtrl, hazardReg: hazardReg, monitor: monitor, observers: []StatusObserver{observer}}

	a.applyOnce(context.Background(), model.ControlMessage{State: model.StateWorking, Duty: model.DutyConfig{Enable: false}})

	require.NotNil(t, observer.last.FlowLPM)
	assert.InDelta(t, 4.2, *observer.last.FlowLPM, 0.001)
}
