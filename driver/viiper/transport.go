package viiper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// TransportConfig controls timeouts and authentication of API connections.
type TransportConfig struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultTransportConfig() TransportConfig {
	return TransportConfig{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Responder answers a request without networking. Used by NewMockTransport.
type Responder func(path string, payload any, pathParams map[string]string) (string, error)

// Transport speaks the VIIPER management protocol.
// Request framing: `<path>[ SP <payload>] \x00`. Only \x00 ends the request,
// so payloads may contain newlines.
// Response framing: one JSON line, then the server closes the connection.
// We read until EOF and trim a single trailing newline.
// Not safe for concurrent use.
type Transport struct {
	addr   string
	mock   Responder
	cfg    TransportConfig
	key    []byte
	logger *slog.Logger
}

// NewTransport creates a transport for addr. A nil cfg uses default timeouts
// and no password.
func NewTransport(addr string, cfg *TransportConfig) *Transport {
	c := defaultTransportConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c, logger: slog.Default()}
}

// WithLogger sets the logger used for connection warnings.
func (t *Transport) WithLogger(l *slog.Logger) *Transport {
	if l != nil {
		t.logger = l
	}
	return t
}

// NewMockTransport creates a transport that returns canned responses.
func NewMockTransport(responder Responder) *Transport {
	return &Transport{addr: "mock", mock: responder, cfg: defaultTransportConfig(), logger: slog.Default()}
}

// dial opens a connection and, with a password configured, authenticates it.
// The PBKDF2 key is derived once per transport.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			t.logger.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	if t.key == nil {
		key, err := DeriveKey(t.cfg.Password)
		if err != nil {
			conn.Close()
			return nil, err
		}
		t.key = key
	}
	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	enc, err := handshake(conn, t.key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return enc, nil
}

// Do sends a request and returns the single-line response (without trailing
// newline). Payload rules: []byte and string are sent as-is, nil sends
// nothing, anything else is JSON encoded.
func (t *Transport) Do(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}
	fullPath := fillPath(path, pathParams)
	lineBytes := []byte(fullPath)
	if pb, err := toPayloadBytes(payload); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	} else if len(pb) > 0 {
		lineBytes = append([]byte(fullPath+" "), pb...)
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(append(lineBytes, '\x00')); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	respBytes, err := io.ReadAll(conn)
	if err != nil && len(respBytes) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(respBytes), "\n"), nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func toPayloadBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return json.Marshal(v)
	}
}
