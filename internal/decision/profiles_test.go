package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimata/unit-cooler/internal/model"
)

func TestProfileRowZeroIsIdleWithZeroDuty(t *testing.T) {
	state, duty := Profile(0)
	assert.Equal(t, model.StateIdle, state)
	assert.False(t, duty.Enable)
	assert.Equal(t, uint32(0), duty.OnSec)
	assert.Equal(t, uint32(0), duty.OffSec)
}

func TestWorkingRowsSumToDutyPeriod(t *testing.T) {
	for i := 1; i < model.ProfileCount; i++ {
		state, duty := Profile(model.ModeIndex(i))
		assert.Equal(t, model.StateWorking, state, "row %d", i)
		assert.Equal(t, uint32(model.DutyPeriodSec), duty.OnSec+duty.OffSec, "row %d", i)
	}
}

func TestOnSecNonDecreasingOffSecNonIncreasing(t *testing.T) {
	var prevOn, prevOff uint32
	for i := 1; i < model.ProfileCount; i++ {
		_, duty := Profile(model.ModeIndex(i))
		if i > 1 {
			assert.GreaterOrEqual(t, duty.OnSec, prevOn, "row %d on_sec must not decrease", i)
			assert.LessOrEqual(t, duty.OffSec, prevOff, "row %d off_sec must not increase", i)
		}
		prevOn, prevOff = duty.OnSec, duty.OffSec
	}
}

func TestProfileClampsOutOfRangeIndex(t *testing.T) {
	state, _ := Profile(-5)
	assert.Equal(t, model.StateIdle, state)

	state, _ = Profile(model.ModeIndex(model.ProfileCount + 10))
	assert.Equal(t, model.StateWorking, state)
}
