package mapping_test

import (
	"math"
	"testing"
	"time"

	"github.com/Alia5/rawpad/mapping"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestStickScaling(t *testing.T) {
	type testCase struct {
		name   string
		sens   mapping.Sensitivity
		dx, dy int32
		wantX  int16
		wantY  int16
	}

	def := mapping.DefaultSensitivity()
	cases := []testCase{
		{name: "large dx clamps", sens: def, dx: 500, dy: 0, wantX: 32767, wantY: 0},
		{name: "large dy clamps and inverts", sens: def, dx: 0, dy: 100, wantX: 0, wantY: -32767},
		{name: "negative dy clamps to max after inversion", sens: def, dx: 0, dy: -100, wantX: 0, wantY: 32767},
		{name: "negative dx clamps to min", sens: def, dx: -500, dy: 0, wantX: -32768, wantY: 0},
		{name: "one pixel", sens: def, dx: 1, dy: 1, wantX: 1966, wantY: -1966},
		{name: "rounding", sens: mapping.Sensitivity{X: 0.0001, Y: 0.0001, Hold: time.Second}, dx: 2, dy: -3, wantX: 7, wantY: 10},
		{name: "zero sensitivity", sens: mapping.Sensitivity{Hold: time.Second}, dx: 40, dy: 40, wantX: 0, wantY: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := mapping.NewStickMapper(tc.sens)
			m.Update(tc.dx, tc.dy, t0)
			st := m.State()
			assert.Equal(t, tc.wantX, st.X)
			assert.Equal(t, tc.wantY, st.Y)
			assert.Equal(t, t0, st.LastMotion)
		})
	}
}

func TestStickFormula(t *testing.T) {
	for _, sens := range []float64{0.001, 0.01, 0.06, 0.5, 2} {
		for dx := int32(-600); dx <= 600; dx += 7 {
			m := mapping.NewStickMapper(mapping.Sensitivity{X: sens, Y: sens, Hold: time.Second})
			m.Update(dx, 0, t0)
			want := math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(float64(dx)*sens*32767)))
			assert.Equal(t, int16(want), m.State().X, "dx=%d sens=%v", dx, sens)
		}
	}
}

func TestStickZeroMotionIsIdempotent(t *testing.T) {
	m := mapping.NewStickMapper(mapping.DefaultSensitivity())
	m.Update(0, 0, t0)
	assert.Equal(t, mapping.StickState{}, m.State())

	m.Update(10, -5, t0)
	before := m.State()
	for i := 1; i <= 5; i++ {
		m.Update(0, 0, t0.Add(time.Duration(i)*time.Millisecond))
	}
	assert.Equal(t, before, m.State())
}

func TestStickHoldAndDecay(t *testing.T) {
	hold := 100 * time.Millisecond
	m := mapping.NewStickMapper(mapping.Sensitivity{X: 1.0 / 32767, Y: 1.0 / 32767, Hold: hold})

	x, y := m.Tick(t0)
	assert.Zero(t, x)
	assert.Zero(t, y)

	m.Update(5000, 3000, t0)

	for _, d := range []time.Duration{0, 20 * time.Millisecond, 99 * time.Millisecond} {
		x, y = m.Tick(t0.Add(d))
		assert.Equal(t, int16(5000), x, d.String())
		assert.Equal(t, int16(-3000), y, d.String())
	}

	x, y = m.Tick(t0.Add(hold))
	assert.Zero(t, x)
	assert.Zero(t, y)

	// the reset is monotonic even if an earlier timestamp shows up later
	x, y = m.Tick(t0.Add(50 * time.Millisecond))
	assert.Zero(t, x)
	assert.Zero(t, y)

	// zero motion does not revive the stale value
	m.Update(0, 0, t0.Add(150*time.Millisecond))
	x, y = m.Tick(t0.Add(160 * time.Millisecond))
	assert.Zero(t, x)
	assert.Zero(t, y)

	m.Update(-10, 0, t0.Add(200*time.Millisecond))
	x, y = m.Tick(t0.Add(210 * time.Millisecond))
	assert.Equal(t, int16(-10), x)
	assert.Zero(t, y)
}

func TestStickHoldNotExtendedByZeroMotion(t *testing.T) {
	m := mapping.NewStickMapper(mapping.DefaultSensitivity())
	m.Update(1, 0, t0)
	m.Update(0, 0, t0.Add(90*time.Millisecond))

	x, _ := m.Tick(t0.Add(100 * time.Millisecond))
	assert.Zero(t, x)
}

func TestStickReset(t *testing.T) {
	m := mapping.NewStickMapper(mapping.DefaultSensitivity())
	m.Update(1, 1, t0)
	m.Reset()
	x, y := m.Tick(t0)
	assert.Zero(t, x)
	assert.Zero(t, y)
}
