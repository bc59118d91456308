package rawinput

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// ErrDecode is wrapped by every decode failure. A failed report is dropped.
var ErrDecode = errors.New("rawinput: decode failed")

var (
	ErrShortReport       = fmt.Errorf("%w: report too short", ErrDecode)
	ErrSizeMismatch      = fmt.Errorf("%w: size mismatch", ErrDecode)
	ErrUnsupportedDevice = fmt.Errorf("%w: unsupported device type", ErrDecode)
	ErrAbsoluteMotion    = fmt.Errorf("%w: absolute motion not supported", ErrDecode)
)

// Decoder turns an opaque platform report into a Report.
type Decoder interface {
	Decode(buf []byte, size uint32) (Report, error)
}

// Win32 raw input constants.
const (
	rimTypeMouse = 0

	mouseMoveAbsolute   = 0x0001
	mouseVirtualDesktop = 0x0002

	// RAWMOUSE: usFlags u16, pad u16, usButtonFlags u16, usButtonData u16,
	// ulRawButtons u32, lLastX i32, lLastY i32, ulExtraInformation u32.
	rawMouseSize = 24
)

// Header sizes of RAWINPUTHEADER (dwType, dwSize, hDevice, wParam).
const (
	HeaderSize32 = 16
	HeaderSize64 = 24
)

// WindowsDecoder decodes the RAWINPUT layout returned by GetRawInputData.
// HeaderSize depends on the pointer width of the producing process.
type WindowsDecoder struct {
	HeaderSize int
}

// NativeDecoder returns a WindowsDecoder for the running architecture.
func NativeDecoder() WindowsDecoder {
	if strconv.IntSize == 32 {
		return WindowsDecoder{HeaderSize: HeaderSize32}
	}
	return WindowsDecoder{HeaderSize: HeaderSize64}
}

// ReportSize is the full size of a mouse RAWINPUT for this layout.
func (d WindowsDecoder) ReportSize() int { return d.HeaderSize + rawMouseSize }

// Decode parses buf[:size]. Any size mismatch, a non-mouse device type or an
// absolute motion mode yields an error wrapping ErrDecode.
func (d WindowsDecoder) Decode(buf []byte, size uint32) (Report, error) {
	if size == 0 || int(size) > len(buf) || int(size) < d.ReportSize() {
		return Report{}, fmt.Errorf("%w (declared %d, buffer %d, need %d)", ErrShortReport, size, len(buf), d.ReportSize())
	}
	buf = buf[:size]

	le := binary.LittleEndian
	if typ := le.Uint32(buf[0:4]); typ != rimTypeMouse {
		return Report{}, fmt.Errorf("%w (type %d)", ErrUnsupportedDevice, typ)
	}
	if hdrSize := le.Uint32(buf[4:8]); hdrSize != size {
		return Report{}, fmt.Errorf("%w (header %d, declared %d)", ErrSizeMismatch, hdrSize, size)
	}

	var device uintptr
	if d.HeaderSize == HeaderSize32 {
		device = uintptr(le.Uint32(buf[8:12]))
	} else {
		device = uintptr(le.Uint64(buf[8:16]))
	}

	m := buf[d.HeaderSize:]
	flags := le.Uint16(m[0:2])
	if flags&(mouseMoveAbsolute|mouseVirtualDesktop) != 0 {
		return Report{}, fmt.Errorf("%w (flags 0x%04x)", ErrAbsoluteMotion, flags)
	}

	return Report{
		Motion: MotionEvent{
			DX: int32(le.Uint32(m[12:16])),
			DY: int32(le.Uint32(m[16:20])),
		},
		Buttons:    ButtonFlags(le.Uint16(m[4:6])),
		WheelDelta: int16(le.Uint16(m[6:8])),
		Device:     device,
	}, nil
}

// Encode builds a RAWINPUT buffer for r in this layout.
func (d WindowsDecoder) Encode(r Report) []byte {
	b := make([]byte, d.ReportSize())
	le := binary.LittleEndian
	le.PutUint32(b[0:4], rimTypeMouse)
	le.PutUint32(b[4:8], uint32(len(b)))
	if d.HeaderSize == HeaderSize32 {
		le.PutUint32(b[8:12], uint32(r.Device))
	} else {
		le.PutUint64(b[8:16], uint64(r.Device))
	}
	m := b[d.HeaderSize:]
	le.PutUint16(m[4:6], uint16(r.Buttons))
	le.PutUint16(m[6:8], uint16(r.WheelDelta))
	le.PutUint32(m[12:16], uint32(r.Motion.DX))
	le.PutUint32(m[16:20], uint32(r.Motion.DY))
	return b
}
