// Package startup implements this system's boot-time safety check: before
// the actuator starts driving the valve pin, the pin's current electrical
// state must agree with the expected CLOSE default.
package startup

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kimata/unit-cooler/internal/gpio"
	"github.com/kimata/unit-cooler/internal/model"
)

// ValidateValvePin checks pin's boot-time state. safe skips the real
// hardware read (dummy mode / tests), since there is nothing to validate
// without a pin to read.
func ValidateValvePin(pin model.GPIOPin, safe bool) error {
	if safe {
		log.Debug().Msg("safe mode: skipping valve pin startup validation")
		return nil
	}

	if err := gpio.ValidateStartupState(pin, false); err != nil {
		return fmt.Errorf("valve pin failed startup validation: %w", err)
	}

	log.Info().Int("pin", pin.Number).Msg("valve pin startup state validated")
	return nil
}
