package tray

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"fyne.io/systray"

	"github.com/Alia5/rawpad/engine"
)

const appTitle = "rawpad"

// Controller is the part of the engine the tray drives.
type Controller interface {
	Pause()
	Resume()
	Paused() bool
}

// ShutdownFunc is called once when "Exit" is clicked.
type ShutdownFunc func()

// Tray is the notification area icon with Pause/Resume and Exit. It doubles
// as an engine observer that mirrors notifications into the tooltip.
type Tray struct {
	engine.NopObserver

	ctrl         Controller
	shutdownFunc ShutdownFunc
	logger       *slog.Logger
	once         sync.Once
	shuttingDown atomic.Bool
	ready        atomic.Bool

	mu        sync.Mutex
	lastNote  string
	menuPause *systray.MenuItem
	menuExit  *systray.MenuItem
}

// New creates a Tray. ctrl may be nil until SetController is called.
func New(ctrl Controller, shutdownFn ShutdownFunc, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{ctrl: ctrl, shutdownFunc: shutdownFn, logger: logger}
}

// SetController attaches the engine once it exists.
func (t *Tray) SetController(c Controller) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctrl = c
}

// Run shows the icon and blocks until Quit.
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() { t.onReady(iconData) }, t.onExit)
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	if t.ready.Load() {
		systray.Quit()
	}
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle(appTitle)

	t.mu.Lock()
	systray.SetTooltip(Tooltip(t.lastNote))
	t.menuPause = systray.AddMenuItem("Pause", "Stop translating mouse input")
	systray.AddSeparator()
	t.menuExit = systray.AddMenuItem("Exit", "Release the controller and quit")
	t.mu.Unlock()
	t.ready.Store(true)

	go t.handleMenuClicks()
	t.logger.Debug("system tray initialized")
}

func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuPause.ClickedCh:
			if !t.shuttingDown.Load() {
				t.menuPause.SetTitle(t.TogglePause())
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.logger.Info("exit requested from tray")
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.ready.Store(false)
	t.logger.Debug("system tray exiting")
}

// TogglePause flips the engine between paused and running and returns the
// label the menu item should show next.
func (t *Tray) TogglePause() string {
	t.mu.Lock()
	ctrl := t.ctrl
	t.mu.Unlock()
	if ctrl == nil {
		return "Pause"
	}
	if ctrl.Paused() {
		ctrl.Resume()
		return "Pause"
	}
	ctrl.Pause()
	return "Resume"
}

// OnNotify shows msg in the tooltip, the tray equivalent of a balloon.
func (t *Tray) OnNotify(msg string) {
	t.mu.Lock()
	t.lastNote = msg
	t.mu.Unlock()
	if t.ready.Load() {
		systray.SetTooltip(Tooltip(msg))
	}
}

// LastNotification returns the most recent message passed to OnNotify.
func (t *Tray) LastNotification() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastNote
}

// Tooltip formats the tooltip text for a notification.
func Tooltip(msg string) string {
	if msg == "" {
		return appTitle
	}
	return appTitle + " - " + msg
}
