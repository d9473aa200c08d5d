// Package dummy implements the offline stand-in for the decision engine: a
// stateful Markov-like walk over mode indices, used by ControllerLoop when
// the real sensor pipeline is unavailable (development, demos, tests).
package dummy

import (
	"math/rand"
	"sync"

	"github.com/kimata/unit-cooler/internal/model"
)

// Walker drifts a mode index by at most one step per call: 60% of the time
// it retains the previous index, otherwise it moves +1 or -1 with equal
// probability, reflecting off the boundaries at 0 and model.ProfileCount-1
// instead of wrapping. It must be constructed once per ControllerLoop and
// never shared as a package-level global -- concurrent callers would race on
// its internal state otherwise.
type Walker struct {
	mu  sync.Mutex
	idx model.ModeIndex
	rng *rand.Rand
}

// NewWalker returns a Walker seeded from seed, starting at mode index 0.
func NewWalker(seed int64) *Walker {
	return &Walker{rng: rand.New(rand.NewSource(seed))}
}

// Next advances the walk by one step and returns the new mode index.
func (w *Walker) Next() model.ModeIndex {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rng.Float64() < 0.6 {
		return w.idx
	}

	step := model.ModeIndex(1)
	if w.rng.Float64() < 0.5 {
		step = -1
	}

	next := w.idx + step
	switch {
	case next < 0:
		next = 1
	case next > model.ProfileCount-1:
		next = model.ProfileCount - 2
	}
	w.idx = next
	return w.idx
}
