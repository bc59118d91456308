// Package dryrun is a controller driver without a controller: it keeps the
// staged state and logs every submitted report. Handy for tuning a profile
// on a machine without a VIIPER server.
package dryrun

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/internal/log"
)

var errNotConnected = errors.New("dry run driver not connected")

type Driver struct {
	logger *slog.Logger
	raw    log.RawLogger

	mu        sync.Mutex
	connected bool
	state     xbox360.InputState
	last      xbox360.InputState
	submits   int
}

func New(logger *slog.Logger, raw log.RawLogger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger, raw: raw}
}

func (d *Driver) Connect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	d.state = xbox360.InputState{}
	d.logger.Info("dry run: no virtual controller will be created")
	return nil
}

func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	d.logger.Info("dry run finished", "reports", d.submits)
	return nil
}

func (d *Driver) SetAxisValue(axis xbox360.Axis, value int16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.SetAxis(axis, value)
}

func (d *Driver) SetButtonState(button xbox360.Button, pressed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.SetButton(button, pressed)
}

// SubmitReport logs the report at debug level when it differs from the
// previous one and at trace level otherwise.
func (d *Driver) SubmitReport() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return errNotConnected
	}
	d.submits++
	if d.raw != nil {
		if data, err := d.state.MarshalBinary(); err == nil {
			d.raw.Log(false, data)
		}
	}

	level := log.LevelTrace
	if d.state != d.last {
		level = slog.LevelDebug
	}
	d.logger.Log(context.Background(), level, "report",
		"buttons", d.state.Buttons,
		"lx", d.state.LX, "ly", d.state.LY,
		"rx", d.state.RX, "ry", d.state.RY,
	)
	d.last = d.state
	return nil
}

// State returns the last submitted state.
func (d *Driver) State() xbox360.InputState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Submits returns how many reports were submitted.
func (d *Driver) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}
