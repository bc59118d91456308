package xbox360

import (
	"fmt"
	"sort"
	"strings"
)

// Button is a single bit of the Xbox 360 (XInput compatible) button word.
type Button uint32

// Button bitmasks for Xbox 360 controller (XInput compatible)
const (
	ButtonDPadUp    Button = 0x0001
	ButtonDPadDown  Button = 0x0002
	ButtonDPadLeft  Button = 0x0004
	ButtonDPadRight Button = 0x0008
	ButtonStart     Button = 0x0010
	ButtonBack      Button = 0x0020
	ButtonLThumb    Button = 0x0040 // Left stick button
	ButtonRThumb    Button = 0x0080 // Right stick button
	ButtonLShoulder Button = 0x0100 // Left bumper (LB)
	ButtonRShoulder Button = 0x0200 // Right bumper (RB)
	ButtonGuide     Button = 0x0400 // Xbox/Guide button (center logo)
	ButtonA         Button = 0x1000
	ButtonB         Button = 0x2000
	ButtonX         Button = 0x4000
	ButtonY         Button = 0x8000
)

var buttonNames = map[string]Button{
	"dpad-up":    ButtonDPadUp,
	"dpad-down":  ButtonDPadDown,
	"dpad-left":  ButtonDPadLeft,
	"dpad-right": ButtonDPadRight,
	"start":      ButtonStart,
	"back":       ButtonBack,
	"lthumb":     ButtonLThumb,
	"rthumb":     ButtonRThumb,
	"lb":         ButtonLShoulder,
	"rb":         ButtonRShoulder,
	"guide":      ButtonGuide,
	"a":          ButtonA,
	"b":          ButtonB,
	"x":          ButtonX,
	"y":          ButtonY,
}

// ParseButton resolves a button name such as "a", "lb" or "dpad-up".
// Matching is case-insensitive.
func ParseButton(name string) (Button, error) {
	b, ok := buttonNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown xbox360 button %q", name)
	}
	return b, nil
}

// ButtonNames returns all accepted button names, sorted.
func ButtonNames() []string {
	out := make([]string, 0, len(buttonNames))
	for n := range buttonNames {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (b Button) String() string {
	for n, v := range buttonNames {
		if v == b {
			return n
		}
	}
	return fmt.Sprintf("button(0x%04x)", uint32(b))
}

// Axis identifies one of the four thumbstick axes.
type Axis uint8

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
)

func (a Axis) String() string {
	switch a {
	case AxisLeftX:
		return "lx"
	case AxisLeftY:
		return "ly"
	case AxisRightX:
		return "rx"
	case AxisRightY:
		return "ry"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// StickAxes returns the X and Y axes of the named stick ("left" or "right").
func StickAxes(stick string) (x, y Axis, err error) {
	switch strings.ToLower(stick) {
	case "left":
		return AxisLeftX, AxisLeftY, nil
	case "right", "":
		return AxisRightX, AxisRightY, nil
	default:
		return 0, 0, fmt.Errorf("unknown stick %q (expected left or right)", stick)
	}
}
