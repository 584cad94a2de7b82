// internal/transport/session.go
package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// ErrNotConnected reports a read or write attempted on a closed session.
// No I/O is performed in that case.
var ErrNotConnected = errors.New("transport: not connected")

// Session owns one physical or network connection to one instrument.
// Reads and writes are only valid while IsOpen reports true; Close is
// idempotent and always succeeds.
type Session interface {
	Connect() error
	IsOpen() bool
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error)
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)
	WriteRegister(addr, value uint16) error
	Close() error
}

// handler is the slice of goburrow's client handlers the session needs.
// Both TCPClientHandler and RTUClientHandler satisfy it.
type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// session drives one goburrow handler. A fresh handler is dialed on every
// Connect so a poisoned connection never survives a reconnect.
// The goburrow client is not thread-safe, so all operations serialize on mu.
type session struct {
	mu      sync.Mutex
	dial    func() handler
	name    string
	handler handler
	client  modbus.Client
	open    bool
	logger  zerolog.Logger
}

func (s *session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	h := s.dial()
	if err := h.Connect(); err != nil {
		return fmt.Errorf("transport: connect %s: %w", s.name, err)
	}

	s.handler = h
	s.client = modbus.NewClient(h)
	s.open = true
	return nil
}

func (s *session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *session) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, ErrNotConnected
	}
	data, err := s.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, fmt.Errorf("transport: read holding %d+%d on %s: %w", addr, qty, s.name, err)
	}
	return unpackRegisters(data, qty)
}

func (s *session) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, ErrNotConnected
	}
	data, err := s.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, fmt.Errorf("transport: read discrete %d+%d on %s: %w", addr, qty, s.name, err)
	}
	return unpackBits(data, qty)
}

func (s *session) WriteRegister(addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrNotConnected
	}
	if _, err := s.client.WriteSingleRegister(addr, value); err != nil {
		return fmt.Errorf("transport: write register %d on %s: %w", addr, s.name, err)
	}
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	if err := s.handler.Close(); err != nil {
		s.logger.Debug().Err(err).Str("endpoint", s.name).Msg("close reported error")
	}
	s.open = false
	s.handler = nil
	s.client = nil
	return nil
}

// ---- payload helpers (geometry only) ----

func unpackRegisters(data []byte, qty uint16) ([]uint16, error) {
	if len(data) != int(qty)*2 {
		return nil, fmt.Errorf("transport: register payload length %d, want %d", len(data), int(qty)*2)
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}

func unpackBits(data []byte, qty uint16) ([]bool, error) {
	if len(data) < (int(qty)+7)/8 {
		return nil, fmt.Errorf("transport: bit payload length %d, want at least %d", len(data), (int(qty)+7)/8)
	}
	out := make([]bool, qty)
	for i := range out {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}
