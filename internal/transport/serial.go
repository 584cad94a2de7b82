// internal/transport/serial.go
package transport

import (
	"errors"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// SerialConfig describes one Modbus RTU instrument on a serial line.
type SerialConfig struct {
	Port     string // device path, e.g. /dev/ttyUSB0
	BaudRate int
	DataBits int
	Parity   string // "N", "E" or "O"
	StopBits int
	SlaveID  uint8
	Timeout  time.Duration
}

// NewSerial creates a session for a Modbus RTU instrument.
// The port is not opened until Connect.
func NewSerial(cfg SerialConfig, logger zerolog.Logger) (Session, error) {
	if cfg.Port == "" {
		return nil, errors.New("transport: serial port required")
	}
	if cfg.BaudRate <= 0 {
		return nil, errors.New("transport: serial baud rate must be > 0")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("transport: serial timeout must be > 0")
	}

	return &session{
		name:   cfg.Port,
		logger: logger,
		dial: func() handler {
			h := modbus.NewRTUClientHandler(cfg.Port)
			h.BaudRate = cfg.BaudRate
			h.DataBits = cfg.DataBits
			h.Parity = cfg.Parity
			h.StopBits = cfg.StopBits
			h.SlaveId = cfg.SlaveID
			h.Timeout = cfg.Timeout
			return h
		},
	}, nil
}
