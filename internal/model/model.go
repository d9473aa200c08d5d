// Package model holds the value types shared across the controller, actuator,
// and webui processes: sensor readings, the decision engine's inputs and
// outputs, and the physical valve/hazard state that survives a restart.
package model

import "time"

// SensorKind enumerates the classes of reading a SenseSnapshot carries.
type SensorKind string

const (
	KindTemp     SensorKind = "temp"
	KindHumi     SensorKind = "humi"
	KindLux      SensorKind = "lux"
	KindSolarRad SensorKind = "solar_rad"
	KindRain     SensorKind = "rain"
	KindPower    SensorKind = "power"
)

// SensorReading is a single named sample. Value is nil when the upstream
// source had nothing to report for this tick; absence propagates rather
// than being coerced to zero.
type SensorReading struct {
	Kind  SensorKind `json:"kind"`
	Name  string     `json:"name"`
	Value *float64   `json:"value"`
	Time  time.Time  `json:"time"`
}

// HasValue reports whether the reading carries a usable sample.
func (r SensorReading) HasValue() bool {
	return r.Value != nil
}

// SenseSnapshot is every reading gathered for one decision tick, grouped by
// kind. By convention the first Temp entry is the outdoor temperature, and
// Power may hold one entry per AC unit.
type SenseSnapshot map[SensorKind][]SensorReading

// Outdoor returns the outdoor temperature reading, which is always the first
// Temp entry, and whether one was present at all.
func (s SenseSnapshot) Outdoor() (SensorReading, bool) {
	readings := s[KindTemp]
	if len(readings) == 0 {
		return SensorReading{}, false
	}
	return readings[0], true
}

// First returns the first reading of kind k, if any.
func (s SenseSnapshot) First(k SensorKind) (SensorReading, bool) {
	readings := s[k]
	if len(readings) == 0 {
		return SensorReading{}, false
	}
	return readings[0], true
}

// Thresholds are the decision engine's tunable constants. They are loaded
// from Config and treated as immutable once the process starts.
type Thresholds struct {
	Lux             float64 `toml:"lux"`
	SolarRadLow     float64 `toml:"solar_rad_low"`
	SolarRadHigh    float64 `toml:"solar_rad_high"`
	SolarRadDaytime float64 `toml:"solar_rad_daytime"`
	HumiMax         float64 `toml:"humi_max"`
	TempHighH       float64 `toml:"temp_high_h"`
	TempHighL       float64 `toml:"temp_high_l"`
	TempMid         float64 `toml:"temp_mid"`
	TempCooling     float64 `toml:"temp_cooling"`
	RainMax         float64 `toml:"rain_max"`
	PowerWork       float64 `toml:"power_work"`
	PowerNormal     float64 `toml:"power_normal"`
	PowerFull       float64 `toml:"power_full"`
}

// DefaultThresholds mirrors the values this system has always shipped with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Lux:             1000,
		SolarRadLow:     50,
		SolarRadHigh:    300,
		SolarRadDaytime: 150,
		HumiMax:         80,
		TempHighH:       34,
		TempHighL:       30,
		TempMid:         28,
		TempCooling:     22,
		RainMax:         0,
		PowerWork:       100,
		PowerNormal:     500,
		PowerFull:       900,
	}
}

// AirconMode is how hard one AC unit looks like it is working, inferred from
// its power draw.
type AirconMode int

const (
	AirconOff AirconMode = iota
	AirconIdle
	AirconNormal
	AirconFull
)

func (m AirconMode) String() string {
	switch m {
	case AirconOff:
		return "off"
	case AirconIdle:
		return "idle"
	case AirconNormal:
		return "normal"
	case AirconFull:
		return "full"
	default:
		return "unknown"
	}
}

// CoolerStatus scores how hard the indoor AC units are working, 0..6.
type CoolerStatus struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// OutdoorStatus adjusts cooling intensity based on outdoor weather, -10..+3.
type OutdoorStatus struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// ModeIndex selects a row in the fixed cooling-profile table.
type ModeIndex int

// ProfileCount is K, the fixed length of the cooling-profile table.
const ProfileCount = 9

// CoolingState is the high-level state a ControlMessage carries.
type CoolingState int

const (
	StateIdle CoolingState = iota
	StateWorking
)

func (s CoolingState) String() string {
	if s == StateWorking {
		return "working"
	}
	return "idle"
}

// MarshalJSON encodes CoolingState the way the wire protocol expects: an int.
func (s CoolingState) MarshalJSON() ([]byte, error) {
	if s == StateWorking {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON decodes the wire protocol's 0|1 state encoding.
func (s *CoolingState) UnmarshalJSON(data []byte) error {
	if string(data) == "1" {
		*s = StateWorking
	} else {
		*s = StateIdle
	}
	return nil
}

// DutyConfig is the ON/OFF schedule of one profile row. For WORKING rows
// OnSec+OffSec must equal DutyPeriodSec; the IDLE row (index 0) carries all
// zeros with Enable=false.
type DutyConfig struct {
	Enable bool   `json:"enable"`
	OnSec  uint32 `json:"on_sec"`
	OffSec uint32 `json:"off_sec"`
}

// DutyPeriodSec is the fixed 15-minute duty-cycle period every WORKING
// profile row must sum to.
const DutyPeriodSec = 900

// ControlMessage is the payload the controller publishes and every
// subscriber treats as immutable once received.
type ControlMessage struct {
	State         CoolingState  `json:"state"`
	Duty          DutyConfig    `json:"duty"`
	ModeIndex     ModeIndex     `json:"mode_index"`
	SenseData     SenseSnapshot `json:"sense_data"`
	CoolerStatus  CoolerStatus  `json:"cooler_status"`
	OutdoorStatus OutdoorStatus `json:"outdoor_status"`
}

// IdleControlMessage is profile row 0, used whenever a hazard is latched.
func IdleControlMessage() ControlMessage {
	return ControlMessage{
		State: StateIdle,
		Duty:  DutyConfig{Enable: false, OnSec: 0, OffSec: 0},
	}
}

// ValveState is the physical electrical state of the solenoid valve.
type ValveState int

const (
	ValveClose ValveState = iota
	ValveOpen
)

func (v ValveState) String() string {
	if v == ValveOpen {
		return "OPEN"
	}
	return "CLOSE"
}

// ValveStatus is the valve's state plus how long it has held that state.
type ValveStatus struct {
	State       ValveState `json:"state"`
	DurationSec float64    `json:"duration"`
}

// CoolingIntent is the controller-level desire, distinct from ValveState
// because WORKING alternates OPEN/CLOSE on the duty schedule.
type CoolingIntent int

const (
	IntentIdle CoolingIntent = iota
	IntentWorking
)

// HazardRecord is the persisted content of the hazard marker file. Presence
// of the marker latches the hazard until Clear is called out of band.
type HazardRecord struct {
	FirstSeen  time.Time `json:"first_seen"`
	LastNotify time.Time `json:"last_notify"`
	Reason     string    `json:"reason"`
}

// ActuatorStatus is published on the secondary status topic so the WebUI
// (and any external MQTT bridge) can show physical state without talking to
// the actuator's primary control-message socket.
type ActuatorStatus struct {
	Timestamp        time.Time   `json:"timestamp"`
	Valve            ValveStatus `json:"valve"`
	FlowLPM          *float64    `json:"flow_lpm"`
	CoolingModeIndex ModeIndex   `json:"cooling_mode_index"`
	HazardDetected   bool        `json:"hazard_detected"`
}

// GPIOPin describes a BCM pin number and its active-high polarity, carried
// over from this codebase's existing hardware wiring convention.
type GPIOPin struct {
	Number     int  `toml:"pin"`
	ActiveHigh bool `toml:"active_high"`
}
