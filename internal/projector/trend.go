package projector

import (
	"fmt"
	"math"
)

type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

func (d Direction) Arrow() string {
	switch d {
	case Up:
		return "↑"
	case Down:
		return "↓"
	default:
		return "→"
	}
}

// Trend compares a metric with its previous sample.
type Trend struct {
	Direction Direction
	Delta     float64 // absolute
}

// NewTrend returns the one-step trend from prev to cur.
func NewTrend(prev, cur float64) Trend {
	diff := cur - prev
	switch {
	case diff > 0:
		return Trend{Direction: Up, Delta: diff}
	case diff < 0:
		return Trend{Direction: Down, Delta: math.Abs(diff)}
	default:
		return Trend{Direction: Flat}
	}
}

// String renders the trend badge, e.g. "↑ 2.0%" or "→ 0%".
func (t Trend) String() string {
	if t.Direction == Flat {
		return "→ 0%"
	}
	return fmt.Sprintf("%s %.1f%%", t.Direction.Arrow(), t.Delta)
}
