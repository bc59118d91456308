package mapping

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/rawinput"
)

// Bindings maps mouse buttons to pad buttons. Unbound mouse buttons are
// ignored.
type Bindings map[rawinput.MouseButton]xbox360.Button

// DefaultBindings: left=A, right=B, middle=X, x1=Y, x2=LB.
func DefaultBindings() Bindings {
	return Bindings{
		rawinput.MouseLeft:   xbox360.ButtonA,
		rawinput.MouseRight:  xbox360.ButtonB,
		rawinput.MouseMiddle: xbox360.ButtonX,
		rawinput.MouseX1:     xbox360.ButtonY,
		rawinput.MouseX2:     xbox360.ButtonLShoulder,
	}
}

// ParseBindings resolves a name table such as {"left": "a"}.
func ParseBindings(names map[string]string) (Bindings, error) {
	out := make(Bindings, len(names))
	for mouse, pad := range names {
		mb, err := rawinput.ParseMouseButton(mouse)
		if err != nil {
			return nil, err
		}
		pb, err := xbox360.ParseButton(pad)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", mouse, err)
		}
		out[mb] = pb
	}
	return out, nil
}

// Names is the inverse of ParseBindings.
func (b Bindings) Names() map[string]string {
	out := make(map[string]string, len(b))
	for mouse, pad := range b {
		out[mouse.String()] = pad.String()
	}
	return out
}

// Transition is a single press or release edge of a pad button.
type Transition struct {
	Button  xbox360.Button
	Pressed bool
}

func (t Transition) String() string {
	if t.Pressed {
		return t.Button.String() + " down"
	}
	return t.Button.String() + " up"
}

// ErrDuplicateTarget is returned when two mouse buttons bind to one pad button.
var ErrDuplicateTarget = errors.New("pad button bound more than once")

type bitAction struct {
	bound   bool
	button  xbox360.Button
	pressed bool
}

// ButtonMapper turns flag words into edges. The bit table is fixed at
// construction; state is one bool per bound pad button.
// Not safe for concurrent use.
type ButtonMapper struct {
	table   [10]bitAction
	targets []xbox360.Button
	pressed map[xbox360.Button]bool
}

// NewButtonMapper validates b and builds the bit table.
func NewButtonMapper(b Bindings) (*ButtonMapper, error) {
	m := &ButtonMapper{pressed: make(map[xbox360.Button]bool, len(b))}
	seen := make(map[xbox360.Button]rawinput.MouseButton, len(b))

	for _, mb := range rawinput.MouseButtons {
		pb, ok := b[mb]
		if !ok {
			continue
		}
		if prev, dup := seen[pb]; dup {
			return nil, fmt.Errorf("%w: %s by %s and %s", ErrDuplicateTarget, pb, prev, mb)
		}
		if pb == 0 || pb&(pb-1) != 0 {
			return nil, fmt.Errorf("binding %s: invalid pad button 0x%04x", mb, uint32(pb))
		}
		seen[pb] = mb
		m.targets = append(m.targets, pb)
		m.pressed[pb] = false
		m.table[2*int(mb)] = bitAction{bound: true, button: pb, pressed: true}
		m.table[2*int(mb)+1] = bitAction{bound: true, button: pb, pressed: false}
	}
	for mb := range b {
		if int(mb) >= len(rawinput.MouseButtons) {
			return nil, fmt.Errorf("unknown mouse button %d", uint8(mb))
		}
	}
	sort.Slice(m.targets, func(i, j int) bool { return m.targets[i] < m.targets[j] })
	return m, nil
}

// Apply walks the set bits of flags in ascending order through the bit
// table and returns the resulting edges. Each pad button yields at most one
// transition per report. A lone down or up bit is emitted only if it changes
// the state. Down and up for the same button in one report always yield one
// release, so the driver sees the button released whatever came before.
func (m *ButtonMapper) Apply(flags rawinput.ButtonFlags) []Transition {
	if flags&rawinput.FlagButtonMask == 0 {
		return nil
	}

	var (
		order []xbox360.Button
		next  = make(map[xbox360.Button]bool, 2)
		both  = make(map[xbox360.Button]bool, 1)
	)
	for bit := range m.table {
		if flags&(1<<bit) == 0 {
			continue
		}
		act := m.table[bit]
		if !act.bound {
			continue
		}
		if prev, seen := next[act.button]; !seen {
			order = append(order, act.button)
		} else if prev != act.pressed {
			both[act.button] = true
		}
		next[act.button] = act.pressed
	}

	var out []Transition
	for _, b := range order {
		if next[b] == m.pressed[b] && !both[b] {
			continue
		}
		m.pressed[b] = next[b]
		out = append(out, Transition{Button: b, Pressed: next[b]})
	}
	return out
}

// Pressed reports the current state of a pad button.
func (m *ButtonMapper) Pressed(b xbox360.Button) bool { return m.pressed[b] }

// Targets returns every bound pad button in ascending bit order.
func (m *ButtonMapper) Targets() []xbox360.Button {
	return append([]xbox360.Button(nil), m.targets...)
}

// Reset releases every pressed button and returns the release edges.
func (m *ButtonMapper) Reset() []Transition {
	var out []Transition
	for _, b := range m.targets {
		if m.pressed[b] {
			m.pressed[b] = false
			out = append(out, Transition{Button: b, Pressed: false})
		}
	}
	return out
}

// Wheel passes the wheel deltas of a report through unchanged.
func Wheel(r rawinput.Report) (vertical, horizontal int16) {
	return r.Wheel()
}
