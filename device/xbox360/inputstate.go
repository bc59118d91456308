// Package xbox360 holds the wire representation of a VIIPER Xbox 360 pad:
// button bits, thumbstick axes, the client->device input state and the
// device->client rumble message.
package xbox360

import (
	"encoding/binary"
	"io"
)

// InputStateSize is the size of a marshaled InputState on the device stream.
const InputStateSize = 20

// InputState represents the controller state sent on the device stream.
// Values are more or less XInput's C API.
type InputState struct {
	// Button bitfield (lower 16 bits used typically), higher bits reserved
	Buttons uint32
	// Triggers: 0-255
	LT, RT uint8
	// Sticks: signed 16-bit little endian values
	LX, LY   int16
	RX, RY   int16
	Reserved [6]byte
}

// SetButton sets or clears a single button bit.
func (x *InputState) SetButton(b Button, pressed bool) {
	if pressed {
		x.Buttons |= uint32(b)
	} else {
		x.Buttons &^= uint32(b)
	}
}

// Pressed reports whether the button bit is set.
func (x *InputState) Pressed(b Button) bool {
	return x.Buttons&uint32(b) != 0
}

// SetAxis writes a thumbstick axis value. Unknown axes are ignored.
func (x *InputState) SetAxis(a Axis, v int16) {
	switch a {
	case AxisLeftX:
		x.LX = v
	case AxisLeftY:
		x.LY = v
	case AxisRightX:
		x.RX = v
	case AxisRightY:
		x.RY = v
	}
}

// Axis reads a thumbstick axis value.
func (x *InputState) Axis(a Axis) int16 {
	switch a {
	case AxisLeftX:
		return x.LX
	case AxisLeftY:
		return x.LY
	case AxisRightX:
		return x.RX
	case AxisRightY:
		return x.RY
	}
	return 0
}

// MarshalBinary encodes InputState to 20 bytes.
func (x *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, InputStateSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	copy(b[14:20], x.Reserved[:])
	return b, nil
}

// UnmarshalBinary decodes 20 bytes into InputState.
func (x *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputStateSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	copy(x.Reserved[:], data[14:20])
	return nil
}

// XRumbleState is the wire format for rumble/motor commands sent from device to client.
// Total size: 2 bytes (fixed).
type XRumbleState struct {
	LeftMotor  uint8
	RightMotor uint8
}

// UnmarshalBinary decodes 2 bytes into XRumbleState.
func (r *XRumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	r.LeftMotor = data[0]
	r.RightMotor = data[1]
	return nil
}
