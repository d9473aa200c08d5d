// Package clock abstracts wall time so tests can run a speeded-up or frozen
// clock without sleeping in real time, and so -t/SPEEDUP can compress every
// ticker in the system uniformly.
package clock

import "time"

// Clock is the time capability every ticking component depends on instead of
// calling time.Now/time.NewTicker directly.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	Sleep(d time.Duration)
}

// Ticker mirrors time.Ticker's public surface.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock, a thin wrapper over the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (Real) Sleep(d time.Duration) { time.Sleep(d) }

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// SpeedUp wraps a Clock and divides every requested duration by factor,
// implementing the -t/SPEEDUP CLI flag's time-acceleration contract. factor
// <= 1 is a no-op passthrough.
type SpeedUp struct {
	Clock
	Factor float64
}

func (s SpeedUp) NewTicker(d time.Duration) Ticker {
	return s.Clock.NewTicker(s.scale(d))
}

func (s SpeedUp) Sleep(d time.Duration) {
	s.Clock.Sleep(s.scale(d))
}

func (s SpeedUp) scale(d time.Duration) time.Duration {
	if s.Factor <= 1 {
		return d
	}
	return time.Duration(float64(d) / s.Factor)
}
