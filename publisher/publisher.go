// Package publisher pushes mapped controller state into a virtual pad driver.
package publisher

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/mapping"
)

// Driver is the virtual controller connection. Only the publisher's owner
// may call it, and exactly one connection is held for an engine's lifetime.
// Set* calls are applied before the next SubmitReport.
type Driver interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SetAxisValue(axis xbox360.Axis, value int16)
	SetButtonState(button xbox360.Button, pressed bool)
	SubmitReport() error
}

// Publisher sequences driver primitives: buttons, then both stick axes, then
// exactly one submit.
type Publisher struct {
	driver Driver
	axisX  xbox360.Axis
	axisY  xbox360.Axis
	logger *slog.Logger

	submits atomic.Uint64
	errors  atomic.Uint64
}

// New creates a Publisher writing the stick to axisX/axisY.
func New(d Driver, axisX, axisY xbox360.Axis, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{driver: d, axisX: axisX, axisY: axisY, logger: logger}
}

// Publish applies transitions, the stick value and submits one report.
// A failed submit is logged and otherwise ignored.
func (p *Publisher) Publish(x, y int16, transitions []mapping.Transition) {
	for _, t := range transitions {
		p.driver.SetButtonState(t.Button, t.Pressed)
	}
	p.driver.SetAxisValue(p.axisX, x)
	p.driver.SetAxisValue(p.axisY, y)
	p.submit()
}

// PublishNeutral releases every listed button, centers the stick and submits
// one report.
func (p *Publisher) PublishNeutral(buttons []xbox360.Button) {
	for _, b := range buttons {
		p.driver.SetButtonState(b, false)
	}
	p.driver.SetAxisValue(p.axisX, 0)
	p.driver.SetAxisValue(p.axisY, 0)
	p.submit()
}

func (p *Publisher) submit() {
	p.submits.Add(1)
	if err := p.driver.SubmitReport(); err != nil {
		n := p.errors.Add(1)
		// first failure, then every 250th
		if n == 1 || n%250 == 0 {
			p.logger.Warn("submit report failed", "error", err, "failures", n)
		}
	}
}

// Submits returns how many reports were submitted and how many failed.
// Safe to call from any goroutine.
func (p *Publisher) Submits() (total, failed uint64) {
	return p.submits.Load(), p.errors.Load()
}
