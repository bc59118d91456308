// Package viiper drives a virtual Xbox 360 controller hosted by a VIIPER
// server: it manages the bus and device through the management API and
// streams input state over the device channel.
package viiper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Alia5/rawpad/apitypes"
	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/internal/log"
)

// DeviceType is the VIIPER device type the driver creates.
const DeviceType = "xbox360"

// ErrNotConnected is returned by SubmitReport outside Connect/Disconnect.
var ErrNotConnected = errors.New("virtual controller not connected")

// Config configures a Driver.
type Config struct {
	Addr     string
	Password string
	// BusID selects the bus. 0 reuses the first existing bus or creates one.
	BusID       uint32
	DialTimeout time.Duration
	IOTimeout   time.Duration

	Logger *slog.Logger
	// Raw receives every submitted input state (as OUT).
	Raw log.RawLogger
	// OnRumble is called from the stream reader goroutine.
	OnRumble func(xbox360.XRumbleState)
}

// Driver implements publisher.Driver. Set* and SubmitReport must be called
// from a single goroutine.
type Driver struct {
	cfg    Config
	client *Client
	logger *slog.Logger

	state      xbox360.InputState
	stream     *DeviceStream
	busID      uint32
	createdBus bool
	device     *apitypes.Device
	rumbleDone chan struct{}
}

// New creates a driver; nothing is dialed before Connect.
func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 5 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	t := NewTransport(cfg.Addr, &TransportConfig{
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
		Password:     cfg.Password,
	}).WithLogger(cfg.Logger)
	return &Driver{cfg: cfg, client: NewClient(t), logger: cfg.Logger}
}

// Connect attaches a fresh xbox360 device and opens its stream. Anything
// created along the way is removed again when a later step fails.
func (d *Driver) Connect(ctx context.Context) error {
	if d.stream != nil {
		return errors.New("already connected")
	}

	ping, err := d.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping %s: %w", d.cfg.Addr, err)
	}
	d.logger.Info("connected to VIIPER", "addr", d.cfg.Addr, "server", ping.Server, "version", ping.Version)

	busID, created, err := d.pickBus(ctx)
	if err != nil {
		return err
	}
	d.busID, d.createdBus = busID, created

	dev, err := d.client.DeviceAdd(ctx, busID, DeviceType)
	if err != nil {
		d.cleanup(nil)
		return fmt.Errorf("add %s device on bus %d: %w", DeviceType, busID, err)
	}
	d.device = dev

	stream, err := d.client.OpenStream(ctx, busID, dev.DevId)
	if err != nil {
		d.cleanup(nil)
		return fmt.Errorf("open stream %d-%s: %w", busID, dev.DevId, err)
	}
	d.stream = stream
	d.state = xbox360.InputState{}

	d.rumbleDone = make(chan struct{})
	go d.readRumble(stream, d.rumbleDone)

	d.logger.Info("virtual controller attached", "bus", busID, "device", dev.DevId, "vid", dev.Vid, "pid", dev.Pid)
	return nil
}

func (d *Driver) pickBus(ctx context.Context) (uint32, bool, error) {
	list, err := d.client.BusList(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list buses: %w", err)
	}
	if d.cfg.BusID != 0 && slices.Contains(list.Buses, d.cfg.BusID) {
		return d.cfg.BusID, false, nil
	}
	if d.cfg.BusID == 0 && len(list.Buses) > 0 {
		return list.Buses[0], false, nil
	}
	resp, err := d.client.BusCreate(ctx, d.cfg.BusID)
	if err != nil {
		return 0, false, fmt.Errorf("create bus: %w", err)
	}
	d.logger.Debug("created bus", "bus", resp.BusID)
	return resp.BusID, true, nil
}

func (d *Driver) readRumble(s *DeviceStream, done chan<- struct{}) {
	defer close(done)
	for {
		r, err := s.ReadRumble()
		if err != nil {
			d.logger.Debug("rumble reader stopped", "error", err)
			return
		}
		d.logger.Debug("rumble", "left", r.LeftMotor, "right", r.RightMotor)
		if d.cfg.OnRumble != nil {
			d.cfg.OnRumble(r)
		}
	}
}

// SetAxisValue stages an axis value for the next SubmitReport.
func (d *Driver) SetAxisValue(axis xbox360.Axis, value int16) {
	d.state.SetAxis(axis, value)
}

// SetButtonState stages a button for the next SubmitReport.
func (d *Driver) SetButtonState(button xbox360.Button, pressed bool) {
	d.state.SetButton(button, pressed)
}

// SubmitReport sends the staged state as one 20-byte input report.
func (d *Driver) SubmitReport() error {
	if d.stream == nil {
		return ErrNotConnected
	}
	data, err := d.state.MarshalBinary()
	if err != nil {
		return err
	}
	if d.cfg.Raw != nil {
		d.cfg.Raw.Log(false, data)
	}
	return d.stream.Write(data, d.cfg.IOTimeout)
}

// Disconnect closes the stream, removes the device and, if this driver
// created it, the bus. Safe to call when not connected.
func (d *Driver) Disconnect() error {
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	<-d.rumbleDone
	d.stream = nil
	return d.cleanup(err)
}

func (d *Driver) cleanup(prev error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*d.cfg.IOTimeout)
	defer cancel()

	errs := []error{prev}
	if d.device != nil {
		if _, err := d.client.DeviceRemove(ctx, d.busID, d.device.DevId); err != nil {
			errs = append(errs, fmt.Errorf("remove device %d-%s: %w", d.busID, d.device.DevId, err))
		}
		d.device = nil
	}
	if d.createdBus {
		if _, err := d.client.BusRemove(ctx, d.busID); err != nil {
			errs = append(errs, fmt.Errorf("remove bus %d: %w", d.busID, err))
		}
		d.createdBus = false
	}
	return errors.Join(errs...)
}
