// Package flowsensor provides FlowMonitor's FlowSensor implementations: a
// dummy generator for offline testing and development, and a thin
// power-gated wrapper for a real serial-bus flow meter.
package flowsensor

import (
	"context"
	"math/rand"
	"sync"
)

// SerialReader is the minimal capability a real flow meter driver exposes;
// concrete wiring (the actual serial transport) lives outside this package.
type SerialReader interface {
	ReadLPM(ctx context.Context) (float64, error)
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
}

// Serial is the production FlowSensor: it only talks to the bus while
// powered, and power state changes are explicit so FlowMonitor's quiet
// shutdown / forced-restart paths have something to call.
type Serial struct {
	mu      sync.Mutex
	reader  SerialReader
	powered bool
}

// NewSerial returns a FlowSensor backed by reader, starting powered down.
func NewSerial(reader SerialReader) *Serial {
	return &Serial{reader: reader}
}

func (s *Serial) Read(ctx context.Context, forcePowerOn bool) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if forcePowerOn && !s.powered {
		if err := s.reader.PowerOn(ctx); err != nil {
			return nil, err
		}
		s.powered = true
	}
	if !s.powered {
		return nil, nil
	}

	lpm, err := s.reader.ReadLPM(ctx)
	if err != nil {
		return nil, err
	}
	return &lpm, nil
}

func (s *Serial) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.powered {
		return nil
	}
	if err := s.reader.PowerOff(ctx); err != nil {
		return err
	}
	s.powered = false
	return nil
}

// Dummy is a FlowSensor stand-in for offline testing: it reports a small
// random flow while the caller asks for power-on, and nothing once stopped.
type Dummy struct {
	mu      sync.Mutex
	rng     *rand.Rand
	powered bool
}

// NewDummy returns a Dummy seeded from seed.
func NewDummy(seed int64) *Dummy {
	return &Dummy{rng: rand.New(rand.NewSource(seed))}
}

func (d *Dummy) Read(_ context.Context, forcePowerOn bool) (*float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if forcePowerOn {
		d.powered = true
	}
	if !d.powered {
		return nil, nil
	}

	lpm := 2.0 + d.rng.Float64()*1.5
	return &lpm, nil
}

func (d *Dummy) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.powered = false
	return nil
}
