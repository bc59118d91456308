package engine

import (
	"context"
	"log/slog"

	"github.com/Alia5/rawpad/internal/log"
	"github.com/Alia5/rawpad/mapping"
	"github.com/Alia5/rawpad/rawinput"
)

// Observer is notified from the engine goroutine. Implementations must not
// block and must not call back into the engine.
type Observer interface {
	OnMotion(ev rawinput.MotionEvent)
	OnButton(t mapping.Transition)
	OnWheel(vertical, horizontal int16)
	OnNotify(msg string)
}

// NopObserver ignores everything. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnMotion(rawinput.MotionEvent) {}
func (NopObserver) OnButton(mapping.Transition)   {}
func (NopObserver) OnWheel(int16, int16)          {}
func (NopObserver) OnNotify(string)               {}

// LogObserver writes events to a logger: input at debug, notifications at info.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnMotion(ev rawinput.MotionEvent) {
	o.Logger.Log(context.Background(), log.LevelTrace, "motion", "dx", ev.DX, "dy", ev.DY)
}

func (o LogObserver) OnButton(t mapping.Transition) {
	o.Logger.Debug("button", "button", t.Button.String(), "pressed", t.Pressed)
}

func (o LogObserver) OnWheel(vertical, horizontal int16) {
	o.Logger.Debug("wheel", "vertical", vertical, "horizontal", horizontal)
}

func (o LogObserver) OnNotify(msg string) {
	o.Logger.Info(msg)
}

// Observers fans out to several observers in order.
type Observers []Observer

func (obs Observers) OnMotion(ev rawinput.MotionEvent) {
	for _, o := range obs {
		o.OnMotion(ev)
	}
}

func (obs Observers) OnButton(t mapping.Transition) {
	for _, o := range obs {
		o.OnButton(t)
	}
}

func (obs Observers) OnWheel(vertical, horizontal int16) {
	for _, o := range obs {
		o.OnWheel(vertical, horizontal)
	}
}

func (obs Observers) OnNotify(msg string) {
	for _, o := range obs {
		o.OnNotify(msg)
	}
}
