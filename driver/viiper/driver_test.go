package viiper_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/rawpad/apitypes"
	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/driver/viiper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tapRecorder struct {
	mu  sync.Mutex
	out [][]byte
}

func (r *tapRecorder) Log(in bool, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !in {
		r.out = append(r.out, bytes.Clone(data))
	}
}

func nextReport(t *testing.T, s *fakeServer) xbox360.InputState {
	t.Helper()
	select {
	case b := <-s.reports:
		var st xbox360.InputState
		require.NoError(t, st.UnmarshalBinary(b))
		return st
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no report received")
		return xbox360.InputState{}
	}
}

func TestDriverLifecycleCreatesBus(t *testing.T) {
	srv := newFakeServer(t, "")
	srv.rumble = []byte{0x10, 0x20}

	rumble := make(chan xbox360.XRumbleState, 1)
	tap := &tapRecorder{}
	d := viiper.New(viiper.Config{
		Addr:     srv.Addr(),
		Raw:      tap,
		OnRumble: func(r xbox360.XRumbleState) { rumble <- r },
	})

	require.NoError(t, d.Connect(context.Background()))

	d.SetButtonState(xbox360.ButtonA, true)
	d.SetAxisValue(xbox360.AxisRightX, 1000)
	d.SetAxisValue(xbox360.AxisRightY, -2000)
	require.NoError(t, d.SubmitReport())

	st := nextReport(t, srv)
	assert.Equal(t, uint32(xbox360.ButtonA), st.Buttons)
	assert.Equal(t, int16(1000), st.RX)
	assert.Equal(t, int16(-2000), st.RY)

	d.SetButtonState(xbox360.ButtonA, false)
	require.NoError(t, d.SubmitReport())
	assert.Zero(t, nextReport(t, srv).Buttons)

	select {
	case r := <-rumble:
		assert.Equal(t, xbox360.XRumbleState{LeftMotor: 0x10, RightMotor: 0x20}, r)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no rumble")
	}

	require.NoError(t, d.Disconnect())
	require.NoError(t, d.Disconnect())
	assert.ErrorIs(t, d.SubmitReport(), viiper.ErrNotConnected)

	assert.Equal(t, []string{
		"ping",
		"bus/list",
		"bus/create",
		`bus/1/add {"type":"xbox360"}`,
		"bus/1/1",
		"bus/1/remove 1",
		"bus/remove 1",
	}, srv.Requests())

	tap.mu.Lock()
	defer tap.mu.Unlock()
	require.Len(t, tap.out, 2)
	assert.Len(t, tap.out[0], xbox360.InputStateSize)
}

func TestDriverReusesExistingBus(t *testing.T) {
	srv := newFakeServer(t, "", 7)
	d := viiper.New(viiper.Config{Addr: srv.Addr()})

	require.NoError(t, d.Connect(context.Background()))
	require.NoError(t, d.Disconnect())

	reqs := srv.Requests()
	assert.Contains(t, reqs, "bus/7/remove 1")
	assert.NotContains(t, reqs, "bus/create")
	assert.NotContains(t, reqs, "bus/remove 7")
}

func TestDriverExplicitBus(t *testing.T) {
	srv := newFakeServer(t, "", 1)
	d := viiper.New(viiper.Config{Addr: srv.Addr(), BusID: 5})

	require.NoError(t, d.Connect(context.Background()))
	require.NoError(t, d.Disconnect())

	assert.Equal(t, []string{
		"ping",
		"bus/list",
		"bus/create 5",
		`bus/5/add {"type":"xbox360"}`,
		"bus/5/1",
		"bus/5/remove 1",
		"bus/remove 5",
	}, srv.Requests())
}

func TestDriverAddFailureRemovesCreatedBus(t *testing.T) {
	srv := newFakeServer(t, "")
	srv.rejectAdd = true
	d := viiper.New(viiper.Config{Addr: srv.Addr()})

	err := d.Connect(context.Background())
	var apiErr *apitypes.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, srv.Requests(), "bus/remove 1")
}

func TestDriverUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	d := viiper.New(viiper.Config{Addr: addr, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, d.Connect(context.Background()))
	assert.NoError(t, d.Disconnect())
}

func TestDriverWithPassword(t *testing.T) {
	srv := newFakeServer(t, "hunter2")
	d := viiper.New(viiper.Config{Addr: srv.Addr(), Password: "hunter2"})

	require.NoError(t, d.Connect(context.Background()))
	d.SetButtonState(xbox360.ButtonStart, true)
	require.NoError(t, d.SubmitReport())
	assert.Equal(t, uint32(xbox360.ButtonStart), nextReport(t, srv).Buttons)
	require.NoError(t, d.Disconnect())
}

func TestDriverWrongPassword(t *testing.T) {
	srv := newFakeServer(t, "hunter2")
	d := viiper.New(viiper.Config{Addr: srv.Addr(), Password: "letmein"})

	err := d.Connect(context.Background())
	assert.True(t, errors.Is(err, viiper.ErrUnauthorized), "got %v", err)
}
