// Package watering implements the WebUI's daily watering-volume summary: how
// much water the valve has let through per day, and what that cost at the
// configured unit price.
package watering

import "context"

// Entry is one day's watering summary.
type Entry struct {
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}

// Source is the external collaborator the WebUI pulls daily totals from --
// the same class of time-series store SensorSource reads, scoped to the
// valve's own flow integral rather than an environmental channel.
type Source interface {
	// DailyTotals returns liters used per day, most recent first, for up to
	// n days. A day with no data yet is reported as 0, not omitted.
	DailyTotals(ctx context.Context, n int) ([]float64, error)
}

// Summarize converts daily liter totals into priced Entries. It is a pure
// function so it can be exercised without a real Source.
func Summarize(dailyLiters []float64, unitPrice float64) []Entry {
	entries := make([]Entry, len(dailyLiters))
	for i, amount := range dailyLiters {
		entries[i] = Entry{Amount: amount, Price: amount * unitPrice}
	}
	return entries
}

// Fake is a deterministic in-memory Source for tests and dummy mode.
type Fake struct {
	Totals []float64
}

func (f Fake) DailyTotals(_ context.Context, n int) ([]float64, error) {
	if n > len(f.Totals) {
		n = len(f.Totals)
	}
	return f.Totals[:n], nil
}
