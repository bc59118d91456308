package rawinput_test

import (
	"encoding/binary"
	"testing"

	"github.com/Alia5/rawpad/rawinput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	type testCase struct {
		name   string
		report rawinput.Report
	}

	cases := []testCase{
		{
			name:   "motion only",
			report: rawinput.Report{Motion: rawinput.MotionEvent{DX: 500, DY: -12}, Device: 0x1234},
		},
		{
			name:   "zero motion",
			report: rawinput.Report{},
		},
		{
			name: "left down right up",
			report: rawinput.Report{
				Buttons: rawinput.FlagLeftDown | rawinput.FlagRightUp,
			},
		},
		{
			name: "wheel down",
			report: rawinput.Report{
				Motion:     rawinput.MotionEvent{DX: -1, DY: 1},
				Buttons:    rawinput.FlagWheel,
				WheelDelta: -120,
			},
		},
	}

	for _, layout := range []rawinput.WindowsDecoder{{HeaderSize: rawinput.HeaderSize32}, {HeaderSize: rawinput.HeaderSize64}} {
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				buf := layout.Encode(tc.report)
				require.Len(t, buf, layout.ReportSize())

				got, err := layout.Decode(buf, uint32(len(buf)))
				require.NoError(t, err)
				assert.Equal(t, tc.report, got)
			})
		}
	}
}

func TestDecodeFailures(t *testing.T) {
	d := rawinput.WindowsDecoder{HeaderSize: rawinput.HeaderSize64}
	valid := func() []byte {
		return d.Encode(rawinput.Report{Motion: rawinput.MotionEvent{DX: 3, DY: 4}})
	}

	type testCase struct {
		name    string
		buf     func() []byte
		size    func(b []byte) uint32
		wantErr error
	}

	cases := []testCase{
		{
			name:    "declared size zero",
			buf:     valid,
			size:    func([]byte) uint32 { return 0 },
			wantErr: rawinput.ErrShortReport,
		},
		{
			name:    "empty buffer",
			buf:     func() []byte { return nil },
			size:    func([]byte) uint32 { return 48 },
			wantErr: rawinput.ErrShortReport,
		},
		{
			name:    "declared larger than buffer",
			buf:     valid,
			size:    func(b []byte) uint32 { return uint32(len(b) + 1) },
			wantErr: rawinput.ErrShortReport,
		},
		{
			name:    "header only",
			buf:     func() []byte { return valid()[:rawinput.HeaderSize64] },
			size:    func(b []byte) uint32 { return uint32(len(b)) },
			wantErr: rawinput.ErrShortReport,
		},
		{
			name: "header size disagrees",
			buf: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint32(b[4:8], 40)
				return b
			},
			size:    func(b []byte) uint32 { return uint32(len(b)) },
			wantErr: rawinput.ErrSizeMismatch,
		},
		{
			name: "keyboard device",
			buf: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint32(b[0:4], 1)
				return b
			},
			size:    func(b []byte) uint32 { return uint32(len(b)) },
			wantErr: rawinput.ErrUnsupportedDevice,
		},
		{
			name: "absolute motion",
			buf: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint16(b[rawinput.HeaderSize64:], 0x0001)
				return b
			},
			size:    func(b []byte) uint32 { return uint32(len(b)) },
			wantErr: rawinput.ErrAbsoluteMotion,
		},
		{
			name: "virtual desktop",
			buf: func() []byte {
				b := valid()
				binary.LittleEndian.PutUint16(b[rawinput.HeaderSize64:], 0x0002)
				return b
			},
			size:    func(b []byte) uint32 { return uint32(len(b)) },
			wantErr: rawinput.ErrAbsoluteMotion,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.buf()
			_, err := d.Decode(b, tc.size(b))
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, rawinput.ErrDecode)
		})
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	d := rawinput.WindowsDecoder{HeaderSize: rawinput.HeaderSize32}
	b := d.Encode(rawinput.Report{Motion: rawinput.MotionEvent{DX: 7}})
	padded := append(b, 0xde, 0xad)

	got, err := d.Decode(padded, uint32(len(b)))
	require.NoError(t, err)
	assert.Equal(t, int32(7), got.Motion.DX)
}

func TestMouseButtonBits(t *testing.T) {
	assert.Equal(t, rawinput.FlagLeftDown, rawinput.MouseLeft.DownBit())
	assert.Equal(t, rawinput.FlagLeftUp, rawinput.MouseLeft.UpBit())
	assert.Equal(t, rawinput.FlagMiddleDown, rawinput.MouseMiddle.DownBit())
	assert.Equal(t, rawinput.FlagX2Up, rawinput.MouseX2.UpBit())

	b, err := rawinput.ParseMouseButton("x1")
	require.NoError(t, err)
	assert.Equal(t, rawinput.MouseX1, b)
	assert.Equal(t, "x1", b.String())

	_, err = rawinput.ParseMouseButton("x3")
	assert.Error(t, err)
}

func TestReportWheel(t *testing.T) {
	r := rawinput.Report{Buttons: rawinput.FlagWheel, WheelDelta: 120}
	v, h := r.Wheel()
	assert.Equal(t, int16(120), v)
	assert.Zero(t, h)

	r = rawinput.Report{Buttons: rawinput.FlagHWheel, WheelDelta: -240}
	v, h = r.Wheel()
	assert.Zero(t, v)
	assert.Equal(t, int16(-240), h)

	r = rawinput.Report{WheelDelta: 99}
	v, h = r.Wheel()
	assert.Zero(t, v)
	assert.Zero(t, h)
}
