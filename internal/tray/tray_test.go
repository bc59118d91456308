package tray_test

import (
	"testing"

	"github.com/Alia5/rawpad/engine"
	"github.com/Alia5/rawpad/internal/tray"
	"github.com/stretchr/testify/assert"
)

type fakeController struct {
	paused bool
	calls  []string
}

func (f *fakeController) Pause()       { f.paused = true; f.calls = append(f.calls, "pause") }
func (f *fakeController) Resume()      { f.paused = false; f.calls = append(f.calls, "resume") }
func (f *fakeController) Paused() bool { return f.paused }

var _ engine.Observer = (*tray.Tray)(nil)

func TestTogglePause(t *testing.T) {
	ctrl := &fakeController{}
	tr := tray.New(nil, func() {}, nil)

	assert.Equal(t, "Pause", tr.TogglePause(), "no controller yet")

	tr.SetController(ctrl)
	assert.Equal(t, "Resume", tr.TogglePause())
	assert.True(t, ctrl.paused)
	assert.Equal(t, "Pause", tr.TogglePause())
	assert.Equal(t, []string{"pause", "resume"}, ctrl.calls)
}

func TestNotifyBeforeReady(t *testing.T) {
	tr := tray.New(nil, func() {}, nil)
	tr.OnNotify("controller connected")
	assert.Equal(t, "controller connected", tr.LastNotification())
	tr.Quit()
}

func TestTooltip(t *testing.T) {
	assert.Equal(t, "rawpad", tray.Tooltip(""))
	assert.Equal(t, "rawpad - paused", tray.Tooltip("paused"))
}

func TestIconEmbedded(t *testing.T) {
	assert.NotEmpty(t, tray.Icon())
}
