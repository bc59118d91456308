// Package engine drives the mouse-to-pad translation: it owns the fixed-rate
// scheduler, the bounded inbox of decoded reports, both mappers and the
// publisher, and serializes all of them on a single goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/mapping"
	"github.com/Alia5/rawpad/publisher"
	"github.com/Alia5/rawpad/rawinput"
)

var (
	// ErrRegistration wraps a raw input registration failure at startup.
	ErrRegistration = errors.New("raw input registration failed")
	// ErrDriverConnect wraps a virtual controller connection failure at startup.
	ErrDriverConnect = errors.New("virtual controller connection failed")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("engine already started")
)

// Config is the per-session engine configuration.
type Config struct {
	Sensitivity mapping.Sensitivity
	Bindings    mapping.Bindings
	// Stick is "right" (default) or "left".
	Stick        string
	TickInterval time.Duration
	InboxSize    int
	// EdgePublish publishes immediately when a report produced button edges,
	// instead of waiting for the next tick.
	EdgePublish bool
}

// DefaultConfig returns the stock session configuration.
func DefaultConfig() Config {
	return Config{
		Sensitivity:  mapping.DefaultSensitivity(),
		Bindings:     mapping.DefaultBindings(),
		Stick:        "right",
		TickInterval: 20 * time.Millisecond,
		InboxSize:    256,
		EdgePublish:  true,
	}
}

// Stats are cumulative engine counters.
type Stats struct {
	Events         uint64
	Dropped        uint64
	DecodeFailures uint64
	Discarded      uint64
	Publishes      uint64
	SubmitFailures uint64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithObserver sets the event observer.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithTicks replaces the internal ticker with an external tick channel.
func WithTicks(ticks <-chan time.Time) Option { return func(e *Engine) { e.ticks = ticks } }

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Engine is the orchestrator. After Start, only its goroutine touches the
// mappers, the publisher and the driver.
type Engine struct {
	cfg      Config
	driver   publisher.Driver
	source   rawinput.Source
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	ticks    <-chan time.Time

	stick   *mapping.StickMapper
	buttons *mapping.ButtonMapper
	pub     *publisher.Publisher

	inbox chan rawinput.Report
	pause chan bool

	mu     sync.Mutex
	state  state
	cancel context.CancelFunc
	done   chan struct{}
	ticker *time.Ticker

	paused         atomic.Bool
	events         atomic.Uint64
	dropped        atomic.Uint64
	decodeFailures atomic.Uint64
	discarded      atomic.Uint64
}

// New validates cfg and builds an engine. Nothing is connected or registered
// until Start.
func New(cfg Config, driver publisher.Driver, source rawinput.Source, opts ...Option) (*Engine, error) {
	if driver == nil {
		return nil, errors.New("engine: nil driver")
	}
	if source == nil {
		return nil, errors.New("engine: nil source")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("engine: tick interval must be positive, got %s", cfg.TickInterval)
	}
	if cfg.Sensitivity.Hold < 0 {
		return nil, fmt.Errorf("engine: hold duration must not be negative, got %s", cfg.Sensitivity.Hold)
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig().InboxSize
	}
	axisX, axisY, err := xbox360.StickAxes(cfg.Stick)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	buttons, err := mapping.NewButtonMapper(cfg.Bindings)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		driver:  driver,
		source:  source,
		now:     time.Now,
		stick:   mapping.NewStickMapper(cfg.Sensitivity),
		buttons: buttons,
		inbox:   make(chan rawinput.Report, cfg.InboxSize),
		pause:   make(chan bool),
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.observer == nil {
		e.observer = NopObserver{}
	}
	e.pub = publisher.New(driver, axisX, axisY, e.logger)
	return e, nil
}

// Start connects the driver, registers the raw input source and starts the
// scheduler. Connect and registration failures are fatal and returned
// wrapped in ErrDriverConnect / ErrRegistration.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateIdle {
		return ErrAlreadyStarted
	}

	if err := e.driver.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDriverConnect, err)
	}
	if err := e.source.Start(e); err != nil {
		if derr := e.driver.Disconnect(); derr != nil {
			e.logger.Warn("disconnect after failed registration", "error", derr)
		}
		return fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	if e.ticks == nil {
		e.ticker = time.NewTicker(e.cfg.TickInterval)
		e.ticks = e.ticker.C
	}
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = stateRunning

	go e.loop(runCtx)

	e.logger.Info("engine started",
		"tick", e.cfg.TickInterval,
		"stick", e.cfg.Stick,
		"sensitivityX", e.cfg.Sensitivity.X,
		"sensitivityY", e.cfg.Sensitivity.Y,
		"hold", e.cfg.Sensitivity.Hold,
	)
	e.observer.OnNotify("controller connected")
	return nil
}

// Run starts the engine, blocks until ctx is done and then stops it.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return e.Stop()
}

// Stop halts the scheduler, stops the source, publishes one neutral report
// and disconnects the driver. Safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRunning {
		return nil
	}
	e.state = stateStopped

	e.cancel()
	<-e.done
	if e.ticker != nil {
		e.ticker.Stop()
	}

	var errs []error
	if err := e.source.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop raw input: %w", err))
	}

	e.buttons.Reset()
	e.stick.Reset()
	e.pub.PublishNeutral(e.buttons.Targets())

	if err := e.driver.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	e.logger.Info("engine stopped", "stats", e.Stats())
	return errors.Join(errs...)
}

// Pause releases everything and ignores input until Resume. Ticks keep
// publishing the neutral state.
func (e *Engine) Pause() { e.setPaused(true) }

// Resume undoes Pause.
func (e *Engine) Resume() { e.setPaused(false) }

// Paused reports whether input is currently ignored.
func (e *Engine) Paused() bool { return e.paused.Load() }

func (e *Engine) setPaused(p bool) {
	e.mu.Lock()
	running := e.state == stateRunning
	done := e.done
	e.mu.Unlock()
	if !running {
		e.paused.Store(p)
		return
	}
	select {
	case e.pause <- p:
	case <-done:
	}
}

// HandleReport is the rawinput.Sink entry point. It never blocks; when the
// inbox is full the report is dropped.
func (e *Engine) HandleReport(r rawinput.Report) {
	select {
	case e.inbox <- r:
	default:
		if n := e.dropped.Add(1); n == 1 || n%1000 == 0 {
			e.logger.Warn("inbox full, dropping reports", "dropped", n)
		}
	}
}

// HandleDecodeError is the rawinput.Sink error entry point.
func (e *Engine) HandleDecodeError(err error) {
	e.decodeFailures.Add(1)
	e.logger.Debug("dropped raw input report", "error", err)
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	total, failed := e.pub.Submits()
	return Stats{
		Events:         e.events.Load(),
		Dropped:        e.dropped.Load(),
		DecodeFailures: e.decodeFailures.Load(),
		Discarded:      e.discarded.Load(),
		Publishes:      total,
		SubmitFailures: failed,
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	var pending []mapping.Transition
	for {
		select {
		case <-ctx.Done():
			return

		case r := <-e.inbox:
			edges := e.apply(r)
			if len(edges) == 0 {
				continue
			}
			if e.cfg.EdgePublish {
				e.publish(append(pending, edges...))
				pending = nil
			} else {
				pending = append(pending, edges...)
			}

		case <-e.ticks:
			pending = e.drain(pending)
			e.publish(pending)
			pending = nil

		case p := <-e.pause:
			if p == e.paused.Load() {
				continue
			}
			if p {
				// Queued and pending edges are superseded by the neutral
				// report, which releases every bound button.
				e.drain(nil)
				pending = nil
				for _, t := range e.buttons.Reset() {
					e.observer.OnButton(t)
				}
				e.stick.Reset()
				e.paused.Store(true)
				e.pub.PublishNeutral(e.buttons.Targets())
				e.observer.OnNotify("paused")
			} else {
				e.paused.Store(false)
				e.observer.OnNotify("resumed")
			}
		}
	}
}

// drain applies every queued report without blocking.
func (e *Engine) drain(pending []mapping.Transition) []mapping.Transition {
	for {
		select {
		case r := <-e.inbox:
			pending = append(pending, e.apply(r)...)
		default:
			return pending
		}
	}
}

func (e *Engine) apply(r rawinput.Report) []mapping.Transition {
	if e.paused.Load() {
		e.discarded.Add(1)
		return nil
	}
	e.events.Add(1)

	if !r.Motion.IsZero() {
		e.observer.OnMotion(r.Motion)
	}
	e.stick.Update(r.Motion.DX, r.Motion.DY, e.now())

	edges := e.buttons.Apply(r.Buttons)
	for _, t := range edges {
		e.observer.OnButton(t)
	}
	if v, h := mapping.Wheel(r); v != 0 || h != 0 {
		e.observer.OnWheel(v, h)
	}
	return edges
}

func (e *Engine) publish(edges []mapping.Transition) {
	x, y := e.stick.Tick(e.now())
	e.pub.Publish(x, y, edges)
}
