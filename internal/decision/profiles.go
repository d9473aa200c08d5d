package decision

import "github.com/kimata/unit-cooler/internal/model"

// profile is one row of the fixed cooling-profile table that ModeIndex
// selects into. Row 0 is always IDLE with zero duty; rows 1..K-1 are
// WORKING, on_sec non-decreasing and off_sec non-increasing across the
// table, each summing to model.DutyPeriodSec.
//
// The concrete on/off split below is this system's behavioural contract
// (see DESIGN.md for how these nine rows were chosen -- the source table
// this was distilled from was not retrievable, so these values are this
// implementation's own, built to satisfy every invariant in the testable
// properties list).
var profileTable = [model.ProfileCount]struct {
	state model.CoolingState
	duty  model.DutyConfig
}{
	{model.StateIdle, model.DutyConfig{Enable: false, OnSec: 0, OffSec: 0}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 60, OffSec: 840}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 120, OffSec: 780}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 180, OffSec: 720}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 300, OffSec: 600}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 420, OffSec: 480}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 540, OffSec: 360}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 700, OffSec: 200}},
	{model.StateWorking, model.DutyConfig{Enable: true, OnSec: 900, OffSec: 0}},
}

// Profile returns the state and duty configuration for mode index idx,
// clamping into [0, K-1] the way the decision engine's combine step already
// should have -- this is a defensive floor/ceiling, not a silent
// out-of-range acceptance.
func Profile(idx model.ModeIndex) (model.CoolingState, model.DutyConfig) {
	if idx < 0 {
		idx = 0
	}
	if idx >= model.ProfileCount {
		idx = model.ProfileCount - 1
	}
	row := profileTable[idx]
	return row.state, row.duty
}
