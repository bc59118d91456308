// Package rawinput decodes relative mouse reports delivered by the OS raw
// input subsystem and defines the source interface the engine consumes.
package rawinput

import (
	"errors"
	"fmt"
)

// MouseButton identifies one of the five physical mouse buttons.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	MouseX1
	MouseX2

	mouseButtonCount
)

// MouseButtons lists all mouse buttons in bit order.
var MouseButtons = [...]MouseButton{MouseLeft, MouseRight, MouseMiddle, MouseX1, MouseX2}

var mouseButtonNames = [...]string{"left", "right", "middle", "x1", "x2"}

func (b MouseButton) String() string {
	if b < mouseButtonCount {
		return mouseButtonNames[b]
	}
	return fmt.Sprintf("mouse(%d)", uint8(b))
}

// ParseMouseButton resolves "left", "right", "middle", "x1" or "x2".
func ParseMouseButton(name string) (MouseButton, error) {
	for i, n := range mouseButtonNames {
		if n == name {
			return MouseButton(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mouse button %q", name)
}

// DownBit returns the flag bit signalling a press of b.
func (b MouseButton) DownBit() ButtonFlags { return 1 << (2 * uint(b)) }

// UpBit returns the flag bit signalling a release of b.
func (b MouseButton) UpBit() ButtonFlags { return 1 << (2*uint(b) + 1) }

// ButtonFlags is the transition bitset of a single report
// (usButtonFlags in RAWMOUSE).
type ButtonFlags uint16

const (
	FlagLeftDown   ButtonFlags = 0x0001
	FlagLeftUp     ButtonFlags = 0x0002
	FlagRightDown  ButtonFlags = 0x0004
	FlagRightUp    ButtonFlags = 0x0008
	FlagMiddleDown ButtonFlags = 0x0010
	FlagMiddleUp   ButtonFlags = 0x0020
	FlagX1Down     ButtonFlags = 0x0040
	FlagX1Up       ButtonFlags = 0x0080
	FlagX2Down     ButtonFlags = 0x0100
	FlagX2Up       ButtonFlags = 0x0200
	FlagWheel      ButtonFlags = 0x0400
	FlagHWheel     ButtonFlags = 0x0800

	// FlagButtonMask covers the ten down/up bits.
	FlagButtonMask ButtonFlags = 0x03ff
)

// Has reports whether all bits of f are set.
func (b ButtonFlags) Has(f ButtonFlags) bool { return b&f == f }

// MotionEvent is a relative pointer delta since the previous report.
type MotionEvent struct {
	DX, DY int32
}

// IsZero reports whether the event carries no movement.
func (m MotionEvent) IsZero() bool { return m.DX == 0 && m.DY == 0 }

// Report is a decoded raw mouse report.
type Report struct {
	Motion  MotionEvent
	Buttons ButtonFlags
	// WheelDelta is only meaningful when Buttons has FlagWheel or FlagHWheel.
	WheelDelta int16
	// Device is the OS handle of the originating mouse.
	Device uintptr
}

// Wheel returns the vertical and horizontal wheel deltas carried by the report.
func (r Report) Wheel() (vertical, horizontal int16) {
	if r.Buttons.Has(FlagWheel) {
		vertical = r.WheelDelta
	}
	if r.Buttons.Has(FlagHWheel) {
		horizontal = r.WheelDelta
	}
	return vertical, horizontal
}

// Sink receives the output of a Source. Both methods are called from the
// source's own thread and must not block.
type Sink interface {
	HandleReport(Report)
	HandleDecodeError(error)
}

// Tap observes raw report bytes before decoding.
type Tap interface {
	Log(in bool, data []byte)
}

// Source delivers decoded reports from the OS to a Sink. Start registers for
// raw mouse input and fails if registration fails; Stop unregisters.
type Source interface {
	Start(sink Sink) error
	Stop() error
}

// ErrUnsupportedPlatform is returned by Start where no raw input backend exists.
var ErrUnsupportedPlatform = errors.New("rawinput: raw mouse input is not supported on this platform")
