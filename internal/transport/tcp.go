// internal/transport/tcp.go
package transport

import (
	"errors"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// TCPConfig describes one Modbus TCP instrument endpoint.
type TCPConfig struct {
	Address string // host:port
	UnitID  uint8
	Timeout time.Duration // bounds both connect and response waits
}

// NewTCP creates a session for a Modbus TCP instrument.
// The connection is not dialed until Connect.
func NewTCP(cfg TCPConfig, logger zerolog.Logger) (Session, error) {
	if cfg.Address == "" {
		return nil, errors.New("transport: tcp address required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("transport: tcp timeout must be > 0")
	}

	return &session{
		name:   cfg.Address,
		logger: logger,
		dial: func() handler {
			h := modbus.NewTCPClientHandler(cfg.Address)
			h.Timeout = cfg.Timeout
			h.SlaveId = cfg.UnitID
			return h
		},
	}, nil
}
