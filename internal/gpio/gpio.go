// Package gpio implements the DigitalOutput capability over the Raspberry Pi
// pinctrl CLI, plus a one-wire temperature sensor reader used as a local
// fallback SensorSource backend for the outdoor temperature channel.
package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/pinctrl"
)

// DigitalOutput is the single physical capability ValveController depends
// on: drive a pin high/low, and read back what it is currently driving.
type DigitalOutput interface {
	Activate() error
	Deactivate() error
	CurrentlyActive() (bool, error)
}

// PinctrlOutput is the production DigitalOutput, backed by the pinctrl CLI.
type PinctrlOutput struct {
	pin     model.GPIOPin
	safe    bool
	applied bool
	active  bool
}

// NewPinctrlOutput returns a DigitalOutput for pin. When safe is true, every
// mutating call is a no-op -- useful for dry-run / dummy-mode invocations
// that must not touch real hardware.
func NewPinctrlOutput(pin model.GPIOPin, safe bool) *PinctrlOutput {
	return &PinctrlOutput{pin: pin, safe: safe}
}

func (o *PinctrlOutput) Activate() error {
	o.applied = true
	o.active = true
	if o.safe {
		return nil
	}
	if o.pin.ActiveHigh {
		return pinctrl.SetPin(o.pin.Number, "op", "pn", "dh")
	}
	return pinctrl.SetPin(o.pin.Number, "op", "pn", "dl")
}

func (o *PinctrlOutput) Deactivate() error {
	o.applied = true
	o.active = false
	if o.safe {
		return nil
	}
	if o.pin.ActiveHigh {
		return pinctrl.SetPin(o.pin.Number, "op", "pn", "dl")
	}
	return pinctrl.SetPin(o.pin.Number, "op", "pn", "dh")
}

func (o *PinctrlOutput) CurrentlyActive() (bool, error) {
	if o.safe {
		return o.active, nil
	}
	level, err := pinctrl.ReadLevel(o.pin.Number)
	if err != nil {
		return false, fmt.Errorf("reading pin %d level: %w", o.pin.Number, err)
	}
	return o.pin.ActiveHigh == level, nil
}

// ValidateStartupState checks the valve pin's boot-time electrical state
// against the expected CLOSE default before the actuator starts driving it.
// A disagreement means the wiring or a prior crash left the valve in an
// unexpected state, which this system treats as a fatal startup condition.
func ValidateStartupState(pin model.GPIOPin, expectActive bool) error {
	level, err := pinctrl.ReadLevel(pin.Number)
	if err != nil {
		return fmt.Errorf("reading startup level for valve pin %d: %w", pin.Number, err)
	}
	isActive := (pin.ActiveHigh && level) || (!pin.ActiveHigh && !level)
	if isActive != expectActive {
		return fmt.Errorf("valve pin %d is in wrong state at startup (expected active=%v, got %v)",
			pin.Number, expectActive, isActive)
	}
	return nil
}

// ReadOneWireTempC reads a DS18B20-style one-wire sensor at sensorPath,
// retrying with a short backoff. It is used by the onewire SensorSource
// backend to supply a local outdoor-temperature reading independent of the
// time-series database.
func ReadOneWireTempC(sensorPath string, retries int) (float64, error) {
	temp, err := readOneWireTempOnce(sensorPath)
	if err == nil || retries <= 0 {
		return temp, err
	}
	time.Sleep(200 * time.Millisecond)
	return ReadOneWireTempC(sensorPath, retries-1)
}

func readOneWireTempOnce(sensorPath string) (float64, error) {
	file := filepath.Join(sensorPath, "w1_slave")
	data, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("reading one-wire sensor file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 || !strings.Contains(lines[1], "t=") {
		return 0, fmt.Errorf("temperature data missing or malformed in %s", file)
	}

	parts := strings.Split(lines[1], "t=")
	if len(parts) != 2 {
		return 0, fmt.Errorf("could not parse temperature line in %s", file)
	}

	tempMilliC, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("parsing temperature value: %w", err)
	}

	return float64(tempMilliC) / 1000.0, nil
}
