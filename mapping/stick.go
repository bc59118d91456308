// Package mapping converts decoded mouse reports into controller state:
// motion deltas into a held-then-recentered stick position, and button flag
// words into press/release edges of pad buttons.
package mapping

import (
	"math"
	"time"
)

// Sensitivity scales motion deltas into stick deflection. Immutable for a
// session.
type Sensitivity struct {
	X, Y float64
	// Hold is how long a stick value is kept after the last nonzero motion.
	Hold time.Duration
}

// DefaultSensitivity matches the stock profile.
func DefaultSensitivity() Sensitivity {
	return Sensitivity{X: 0.06, Y: 0.06, Hold: 100 * time.Millisecond}
}

// StickState is the last computed stick value and when it was computed.
type StickState struct {
	X, Y       int16
	LastMotion time.Time
}

// StickMapper owns a StickState. Not safe for concurrent use.
type StickMapper struct {
	sens  Sensitivity
	state StickState
	// live is false until the first motion and again once the hold expired.
	live bool
}

func NewStickMapper(s Sensitivity) *StickMapper {
	return &StickMapper{sens: s}
}

// Update recomputes the stick from a motion delta. The Y axis is inverted so
// that moving the mouse up pushes the stick up. (0,0) leaves everything
// untouched, including the recency timestamp.
func (m *StickMapper) Update(dx, dy int32, now time.Time) {
	if dx == 0 && dy == 0 {
		return
	}
	m.state.X = scale(dx, m.sens.X)
	m.state.Y = negate(scale(dy, m.sens.Y))
	m.state.LastMotion = now
	m.live = true
}

// Tick returns the value to publish at now: the last computed value while
// within the hold window, (0,0) afterwards. Once recentered, it stays
// centered until the next nonzero Update.
func (m *StickMapper) Tick(now time.Time) (x, y int16) {
	if !m.live {
		return 0, 0
	}
	if now.Sub(m.state.LastMotion) >= m.sens.Hold {
		m.live = false
		return 0, 0
	}
	return m.state.X, m.state.Y
}

// State returns a copy of the current StickState.
func (m *StickMapper) State() StickState { return m.state }

// Reset recenters the stick immediately.
func (m *StickMapper) Reset() {
	m.live = false
}

func scale(d int32, sens float64) int16 {
	return clamp16(math.Round(float64(d) * sens * math.MaxInt16))
}

func clamp16(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// negate saturates -(-32768) to 32767.
func negate(v int16) int16 {
	if v == math.MinInt16 {
		return math.MaxInt16
	}
	return -v
}
