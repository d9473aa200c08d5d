// Package decision implements the pure cooling-decision function -- the one
// piece of this system with no I/O, no clock, and no hidden state -- plus the
// fixed cooling-profile table it selects into and the per-process dummy-mode
// generator used for offline testing.
package decision

import (
	"fmt"

	"github.com/kimata/unit-cooler/internal/errs"
	"github.com/kimata/unit-cooler/internal/model"
)

// Decide scores the indoor units' activity and the outdoor weather, combines
// them into a mode index, and returns that index alongside the
// diagnostic CoolerStatus/OutdoorStatus that explain why.
func Decide(snapshot model.SenseSnapshot, thresholds model.Thresholds) (model.ModeIndex, model.CoolerStatus, model.OutdoorStatus, error) {
	cooler, err := coolerActivity(snapshot, thresholds)
	if err != nil {
		return 0, model.CoolerStatus{}, model.OutdoorStatus{}, err
	}

	outdoor := outdoorAdjustment(snapshot, thresholds, cooler)

	idx := cooler.Status + outdoor.Status
	if idx < 0 {
		idx = 0
	}
	if idx > model.ProfileCount-1 {
		idx = model.ProfileCount - 1
	}

	return model.ModeIndex(idx), cooler, outdoor, nil
}

// coolerActivity implements Step A: build a per-unit AirconMode histogram
// from Power readings and collapse it to a single 0..6 score.
func coolerActivity(snapshot model.SenseSnapshot, thresholds model.Thresholds) (model.CoolerStatus, error) {
	powerReadings := snapshot[model.KindPower]
	if len(powerReadings) == 0 {
		return model.CoolerStatus{Status: 0}, nil
	}

	outdoorTemp, haveOutdoor := snapshot.Outdoor()
	if !haveOutdoor || !outdoorTemp.HasValue() {
		return model.CoolerStatus{}, fmt.Errorf("scoring cooler activity: %w", errs.ErrOutdoorTempUnknown)
	}

	var full, normal, idle int
	for _, reading := range powerReadings {
		switch classifyUnit(reading, *outdoorTemp.Value, thresholds) {
		case model.AirconFull:
			full++
		case model.AirconNormal:
			normal++
		case model.AirconIdle:
			idle++
		}
	}

	switch {
	case full >= 2:
		return model.CoolerStatus{Status: 6, Message: "two or more units at full power"}, nil
	case full >= 1 && normal >= 1:
		return model.CoolerStatus{Status: 5, Message: "one unit full, one normal"}, nil
	case full >= 1:
		return model.CoolerStatus{Status: 4, Message: "one unit at full power"}, nil
	case normal >= 2:
		return model.CoolerStatus{Status: 4, Message: "two or more units at normal power"}, nil
	case normal >= 1:
		return model.CoolerStatus{Status: 3, Message: "one unit at normal power"}, nil
	case idle >= 2:
		return model.CoolerStatus{Status: 2, Message: "two or more units idling"}, nil
	case idle >= 1:
		return model.CoolerStatus{Status: 1, Message: "one unit idling"}, nil
	default:
		return model.CoolerStatus{Status: 0, Message: "no units drawing power"}, nil
	}
}

// classifyUnit scores a single AC unit's power reading. A unit with no
// reading at all degrades to Off rather than failing the whole step; an
// outdoor temperature below TempCooling means any draw is plausibly heating,
// not cooling, so it is also scored Off.
func classifyUnit(reading model.SensorReading, outdoorTemp float64, thresholds model.Thresholds) model.AirconMode {
	if !reading.HasValue() {
		return model.AirconOff
	}
	if outdoorTemp < thresholds.TempCooling {
		return model.AirconOff
	}

	watts := *reading.Value
	switch {
	case watts > thresholds.PowerFull:
		return model.AirconFull
	case watts > thresholds.PowerNormal:
		return model.AirconNormal
	case watts > thresholds.PowerWork:
		return model.AirconIdle
	default:
		return model.AirconOff
	}
}

// outdoorAdjustment implements Step B: when no units are active there is
// nothing to adjust, otherwise score the weather against an ordered,
// first-match-wins rule list.
func outdoorAdjustment(snapshot model.SenseSnapshot, thresholds model.Thresholds, cooler model.CoolerStatus) model.OutdoorStatus {
	if cooler.Status == 0 {
		return model.OutdoorStatus{Status: 0}
	}

	temp, haveTemp := snapshot.Outdoor()
	humi, haveHumi := snapshot.First(model.KindHumi)
	solarRad, haveSolarRad := snapshot.First(model.KindSolarRad)
	lux, haveLux := snapshot.First(model.KindLux)
	rain, haveRain := snapshot.First(model.KindRain)

	if !haveTemp || !temp.HasValue() || !haveHumi || !humi.HasValue() ||
		!haveSolarRad || !solarRad.HasValue() || !haveLux || !lux.HasValue() {
		return model.OutdoorStatus{Status: -10, Message: "sensor data missing, stop cooling"}
	}

	tempC := *temp.Value
	humiPct := *humi.Value
	solarRadWm2 := *solarRad.Value
	luxVal := *lux.Value
	rainMM := 0.0
	if haveRain && rain.HasValue() {
		rainMM = *rain.Value
	}

	switch {
	case rainMM > thresholds.RainMax:
		return model.OutdoorStatus{Status: -4, Message: "raining"}
	case humiPct > thresholds.HumiMax:
		return model.OutdoorStatus{Status: -4, Message: "humidity too high"}
	case tempC > thresholds.TempHighH && solarRadWm2 > thresholds.SolarRadDaytime:
		return model.OutdoorStatus{Status: 3, Message: "blazing"}
	case tempC > thresholds.TempHighL && solarRadWm2 > thresholds.SolarRadDaytime:
		return model.OutdoorStatus{Status: 2, Message: "hot"}
	case solarRadWm2 > thresholds.SolarRadHigh:
		return model.OutdoorStatus{Status: 1, Message: "bright"}
	case tempC > thresholds.TempMid && luxVal < thresholds.Lux:
		return model.OutdoorStatus{Status: -1, Message: "warm but dim"}
	case luxVal < thresholds.Lux:
		return model.OutdoorStatus{Status: -2, Message: "dim"}
	case solarRadWm2 < thresholds.SolarRadLow:
		return model.OutdoorStatus{Status: -1, Message: "weak sun"}
	default:
		return model.OutdoorStatus{Status: 0}
	}
}
