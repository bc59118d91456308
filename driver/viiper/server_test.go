package viiper_test

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Alia5/rawpad/driver/viiper"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal VIIPER management + stream endpoint.
type fakeServer struct {
	t   *testing.T
	ln  net.Listener
	key []byte

	rejectAdd bool
	rumble    []byte

	mu       sync.Mutex
	buses    []uint32
	devices  map[uint32][]string
	requests []string

	reports chan []byte
}

func newFakeServer(t *testing.T, password string, buses ...uint32) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{
		t:       t,
		ln:      ln,
		buses:   buses,
		devices: map[uint32][]string{},
		reports: make(chan []byte, 64),
	}
	if password != "" {
		s.key, err = viiper.DeriveKey(password)
		require.NoError(t, err)
	}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeServer) Addr() string { return s.ln.Addr().String() }

func (s *fakeServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(raw net.Conn) {
	defer raw.Close()
	conn := raw
	if s.key != nil {
		var err error
		if conn, err = s.accept(raw); err != nil {
			return
		}
	}

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\x00')
	if err != nil {
		return
	}
	line = strings.TrimSuffix(line, "\x00")
	path, payload, _ := strings.Cut(line, " ")

	s.mu.Lock()
	s.requests = append(s.requests, line)
	s.mu.Unlock()

	parts := strings.Split(path, "/")
	if len(parts) == 3 && parts[0] == "bus" && parts[2] != "add" && parts[2] != "remove" && parts[2] != "list" {
		s.stream(conn, r)
		return
	}
	_, _ = io.WriteString(conn, s.respond(parts, payload)+"\n")
}

func (s *fakeServer) accept(conn net.Conn) (net.Conn, error) {
	hello := make([]byte, len(viiper.HandshakeMagic)+2*viiper.NonceSize)
	if _, err := io.ReadFull(conn, hello); err != nil {
		return nil, err
	}
	clientNonce := hello[len(viiper.HandshakeMagic) : len(viiper.HandshakeMagic)+viiper.NonceSize]
	mac := hello[len(viiper.HandshakeMagic)+viiper.NonceSize:]
	if !hmac.Equal(mac, viiper.ClientAuth(s.key, clientNonce)) {
		return nil, fmt.Errorf("bad auth")
	}
	serverNonce := make([]byte, viiper.NonceSize)
	_, _ = rand.Read(serverNonce)
	if _, err := conn.Write(append([]byte("OK\x00"), serverNonce...)); err != nil {
		return nil, err
	}
	return viiper.WrapConn(conn, viiper.DeriveSessionKey(s.key, serverNonce, clientNonce))
}

func (s *fakeServer) stream(conn net.Conn, r *bufio.Reader) {
	if len(s.rumble) > 0 {
		_, _ = conn.Write(s.rumble)
	}
	for {
		buf := make([]byte, 20)
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		s.reports <- buf
	}
}

func problem(status int, title, detail string) string {
	b, _ := json.Marshal(map[string]any{"status": status, "title": title, "detail": detail})
	return string(b)
}

func reply(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (s *fakeServer) respond(parts []string, payload string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(parts) == 1 && parts[0] == "ping":
		return reply(map[string]string{"server": "VIIPER", "version": "test"})
	case len(parts) == 2 && parts[1] == "list":
		return reply(map[string]any{"buses": s.buses})
	case len(parts) == 2 && parts[1] == "create":
		id := uint32(1)
		for _, b := range s.buses {
			id = max(id, b+1)
		}
		if payload != "" {
			n, _ := strconv.ParseUint(payload, 10, 32)
			id = uint32(n)
		}
		if slices.Contains(s.buses, id) {
			return problem(409, "Conflict", "bus exists")
		}
		s.buses = append(s.buses, id)
		return reply(map[string]uint32{"busId": id})
	case len(parts) == 2 && parts[1] == "remove":
		n, _ := strconv.ParseUint(payload, 10, 32)
		s.buses = slices.DeleteFunc(s.buses, func(b uint32) bool { return b == uint32(n) })
		return reply(map[string]uint32{"busId": uint32(n)})
	case len(parts) == 3:
		n, _ := strconv.ParseUint(parts[1], 10, 32)
		bus := uint32(n)
		if !slices.Contains(s.buses, bus) {
			return problem(404, "Not Found", "bus not found")
		}
		switch parts[2] {
		case "add":
			if s.rejectAdd {
				return problem(400, "Bad Request", "device type disabled")
			}
			var req struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Type != "xbox360" {
				return problem(400, "Bad Request", "unknown device type")
			}
			dev := strconv.Itoa(len(s.devices[bus]) + 1)
			s.devices[bus] = append(s.devices[bus], dev)
			return reply(map[string]any{"busId": bus, "devId": dev, "vid": "0x045e", "pid": "0x028e", "type": "xbox360"})
		case "remove":
			s.devices[bus] = slices.DeleteFunc(s.devices[bus], func(d string) bool { return d == payload })
			return reply(map[string]any{"busId": bus, "devId": payload})
		case "list":
			return reply(map[string]any{"devices": []any{}})
		}
	}
	return problem(404, "Not Found", "unknown path")
}
