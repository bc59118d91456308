//go:build windows

package rawinput

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmDestroy = 0x0002
	wmClose   = 0x0010
	wmInput   = 0x00FF

	ridInput = 0x10000003

	ridevRemove    = 0x00000001
	ridevInputSink = 0x00000100

	hidUsagePageGeneric = 0x01
	hidUsageMouse       = 0x02

	hwndMessage = ^uintptr(2) // HWND_MESSAGE (-3)

	rawInputError = 0xFFFFFFFF
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterRawInputDevices = user32.NewProc("RegisterRawInputDevices")
	procGetRawInputData         = user32.NewProc("GetRawInputData")
	procRegisterClassEx         = user32.NewProc("RegisterClassExW")
	procUnregisterClass         = user32.NewProc("UnregisterClassW")
	procCreateWindowEx          = user32.NewProc("CreateWindowExW")
	procDestroyWindow           = user32.NewProc("DestroyWindow")
	procDefWindowProc           = user32.NewProc("DefWindowProcW")
	procGetMessage              = user32.NewProc("GetMessageW")
	procTranslateMessage        = user32.NewProc("TranslateMessage")
	procDispatchMessage         = user32.NewProc("DispatchMessageW")
	procPostMessage             = user32.NewProc("PostMessageW")
	procPostQuitMessage         = user32.NewProc("PostQuitMessage")
	procGetModuleHandle         = kernel32.NewProc("GetModuleHandleW")
)

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         windows.Handle
	hCursor       windows.Handle
	hbrBackground windows.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       windows.Handle
}

type point struct{ x, y int32 }

type msg struct {
	hwnd    windows.HWND
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      point
}

type rawInputDevice struct {
	usUsagePage uint16
	usUsage     uint16
	dwFlags     uint32
	hwndTarget  windows.HWND
}

const className = "RawpadRawInput"

type windowsSource struct {
	o Options

	mu      sync.Mutex
	sink    Sink
	hwnd    windows.HWND
	running bool
	done    chan struct{}
	buf     []byte
}

// NewSource returns the Windows raw mouse source. It owns a message-only
// window on a dedicated OS thread; reports are decoded there and handed to
// the sink.
func NewSource(o Options) Source {
	o.defaults()
	return &windowsSource{o: o}
}

func (s *windowsSource) Start(sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("rawinput: source already running")
	}
	s.sink = sink
	s.done = make(chan struct{})

	started := make(chan error, 1)
	go s.loop(started)
	if err := <-started; err != nil {
		return err
	}
	s.running = true
	return nil
}

func (s *windowsSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	hwnd := s.hwnd
	done := s.done
	s.mu.Unlock()

	r, _, err := procPostMessage.Call(uintptr(hwnd), wmClose, 0, 0)
	if r == 0 {
		return fmt.Errorf("post WM_CLOSE: %w", err)
	}
	<-done
	return nil
}

func (s *windowsSource) loop(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	name, _ := windows.UTF16PtrFromString(className)
	hInstance, _, _ := procGetModuleHandle.Call(0)

	wc := wndClassEx{
		lpfnWndProc:   windows.NewCallback(s.wndProc),
		hInstance:     windows.Handle(hInstance),
		lpszClassName: name,
	}
	wc.cbSize = uint32(unsafe.Sizeof(wc))
	if r, _, err := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
		started <- fmt.Errorf("register window class: %w", err)
		return
	}
	defer procUnregisterClass.Call(uintptr(unsafe.Pointer(name)), hInstance)

	hwnd, _, err := procCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(name)),
		0,
		0,
		0, 0, 0, 0,
		hwndMessage,
		0,
		hInstance,
		0,
	)
	if hwnd == 0 {
		started <- fmt.Errorf("create message window: %w", err)
		return
	}
	s.hwnd = windows.HWND(hwnd)

	rid := rawInputDevice{
		usUsagePage: hidUsagePageGeneric,
		usUsage:     hidUsageMouse,
		dwFlags:     ridevInputSink,
		hwndTarget:  s.hwnd,
	}
	if r, _, err := procRegisterRawInputDevices.Call(uintptr(unsafe.Pointer(&rid)), 1, unsafe.Sizeof(rid)); r == 0 {
		procDestroyWindow.Call(hwnd)
		started <- fmt.Errorf("register raw input devices: %w", err)
		return
	}
	s.o.Logger.Debug("registered for raw mouse input", "hwnd", hwnd)
	started <- nil

	var m msg
	for {
		r, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (s *windowsSource) wndProc(hwnd, message, wParam, lParam uintptr) uintptr {
	switch message {
	case wmInput:
		s.read(lParam)
	case wmClose:
		rid := rawInputDevice{
			usUsagePage: hidUsagePageGeneric,
			usUsage:     hidUsageMouse,
			dwFlags:     ridevRemove,
		}
		procRegisterRawInputDevices.Call(uintptr(unsafe.Pointer(&rid)), 1, unsafe.Sizeof(rid))
		procDestroyWindow.Call(hwnd)
		return 0
	case wmDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}
	r, _, _ := procDefWindowProc.Call(hwnd, message, wParam, lParam)
	return r
}

// read fetches one report: first query its size, then copy it.
func (s *windowsSource) read(handle uintptr) {
	hdrSize := uintptr(s.headerSize())

	var size uint32
	r, _, _ := procGetRawInputData.Call(handle, ridInput, 0, uintptr(unsafe.Pointer(&size)), hdrSize)
	if uint32(r) == rawInputError {
		s.sink.HandleDecodeError(fmt.Errorf("%w: size query failed", ErrDecode))
		return
	}
	if size == 0 {
		s.sink.HandleDecodeError(fmt.Errorf("%w (declared 0)", ErrShortReport))
		return
	}
	if cap(s.buf) < int(size) {
		s.buf = make([]byte, size)
	}
	buf := s.buf[:size]

	r, _, _ = procGetRawInputData.Call(handle, ridInput, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)), hdrSize)
	if uint32(r) == rawInputError {
		s.sink.HandleDecodeError(fmt.Errorf("%w: buffer too small", ErrShortReport))
		return
	}
	if s.o.Tap != nil {
		s.o.Tap.Log(true, buf[:r])
	}

	rep, err := s.o.Decoder.Decode(buf, uint32(r))
	if err != nil {
		s.sink.HandleDecodeError(err)
		return
	}
	s.sink.HandleReport(rep)
}

func (s *windowsSource) headerSize() int {
	if d, ok := s.o.Decoder.(WindowsDecoder); ok {
		return d.HeaderSize
	}
	return NativeDecoder().HeaderSize
}
