// Package sensorsource implements SensorSource, the external collaborator
// ControllerLoop calls once per tick to gather a SenseSnapshot. Fan-out
// across channels is via errgroup, mirroring how this system always treated
// each environmental channel as an independently-failing upstream query.
package sensorsource

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kimata/unit-cooler/internal/model"
)

// Channel is one named query this source knows how to fetch: a sensor kind,
// a human name (matching model.SensorReading.Name), and the fetch function
// itself.
type Channel struct {
	Kind  model.SensorKind
	Name  string
	Fetch func(ctx context.Context) (*float64, error)
}

// Source fans Channels out in parallel and assembles their results into a
// single SenseSnapshot. A channel's own fetch error degrades that one
// reading to absent (nil Value) rather than failing the whole snapshot --
// only the decision engine's own rules decide whether an absent reading is
// fatal to a given computation.
type Source struct {
	channels []Channel
}

// New returns a Source over channels. Order matters for Temp: the first Temp
// channel supplied is treated as the outdoor reading everywhere downstream.
func New(channels []Channel) *Source {
	return &Source{channels: channels}
}

// Fetch gathers every channel concurrently, bounded by ctx.
func (s *Source) Fetch(ctx context.Context) (model.SenseSnapshot, error) {
	readings := make([]model.SensorReading, len(s.channels))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for i, ch := range s.channels {
		i, ch := i, ch
		g.Go(func() error {
			value, err := ch.Fetch(ctx)
			if err != nil {
				value = nil
			}
			readings[i] = model.SensorReading{Kind: ch.Kind, Name: ch.Name, Value: value, Time: time.Now()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching sensor snapshot: %w", err)
	}

	snapshot := model.SenseSnapshot{}
	for _, r := range readings {
		snapshot[r.Kind] = append(snapshot[r.Kind], r)
	}
	return snapshot, nil
}
