// internal/store/server.go
package store

import (
	mbserver "github.com/hootrhino/mbserver"
	mbstore "github.com/hootrhino/mbserver/store"
	"github.com/rs/zerolog"
)

// Server is the Modbus TCP front-end over a Table. SCADA clients read the
// register banks through it; the bridge pushes a fresh snapshot after every
// table write. Consistency is a best-effort window: a client may observe the
// previous snapshot while a sync is in flight, never a partial range.
type Server struct {
	srv    *mbserver.Server
	table  *Table
	logger zerolog.Logger
}

// NewServer builds the front-end. maxConns caps concurrent SCADA clients.
func NewServer(table *Table, maxConns int, logger zerolog.Logger) *Server {
	srv := mbserver.NewServer(mbstore.NewInMemoryStore(), maxConns)
	srv.SetLogger(logger)
	srv.SetErrorHandler(func(err error) {
		logger.Error().Err(err).Msg("modbus server error")
	})

	return &Server{srv: srv, table: table, logger: logger}
}

// Start publishes the initial (zeroed) banks and begins listening on addr.
// It does not block.
func (s *Server) Start(addr string) error {
	s.Sync()
	if err := s.srv.Start(addr); err != nil {
		return err
	}
	s.logger.Info().Str("listen", addr).Msg("modbus server started")
	return nil
}

func (s *Server) Stop() {
	s.srv.Stop()
}

// Sync pushes the current table snapshot into the served register banks.
// Discrete inputs go over bit-packed, 8 per byte, LSB first.
func (s *Server) Sync() {
	if err := s.srv.SetHoldingRegisters(s.table.HoldingRegisters()); err != nil {
		s.logger.Error().Err(err).Msg("sync holding registers failed")
	}
	if err := s.srv.SetDiscreteInputs(packBits(s.table.DiscreteInputs())); err != nil {
		s.logger.Error().Err(err).Msg("sync discrete inputs failed")
	}
}

func packBits(bits []bool) []byte {
	n := (len(bits) + 7) / 8
	out := make([]byte, n)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
