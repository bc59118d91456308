package viiper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Alia5/rawpad/device/xbox360"
)

// ErrStreamClosed is returned by writes after Close.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the bidirectional connection to one device: input state
// goes out, rumble comes back.
type DeviceStream struct {
	conn  net.Conn
	BusID uint32
	DevID string

	mu     sync.Mutex
	closed bool
}

// OpenStream connects to an existing device's stream channel.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, errors.New("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	streamPath := fmt.Sprintf("bus/%d/%s\x00", busID, devID)
	if _, err := conn.Write([]byte(streamPath)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{conn: conn, BusID: busID, DevID: devID}, nil
}

// Write sends data in one write, bounded by timeout when positive.
func (s *DeviceStream) Write(data []byte, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := s.conn.Write(data)
	return err
}

// ReadRumble blocks until the next 2-byte rumble message.
func (s *DeviceStream) ReadRumble() (xbox360.XRumbleState, error) {
	var b [2]byte
	var r xbox360.XRumbleState
	if _, err := io.ReadFull(s.conn, b[:]); err != nil {
		return r, err
	}
	err := r.UnmarshalBinary(b[:])
	return r, err
}

// Close closes the stream connection; a pending ReadRumble returns an error.
func (s *DeviceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
