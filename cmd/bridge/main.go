// cmd/bridge/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/acquire"
	"github.com/tamzrod/sensor-bridge/internal/config"
	"github.com/tamzrod/sensor-bridge/internal/display"
	"github.com/tamzrod/sensor-bridge/internal/observability"
	"github.com/tamzrod/sensor-bridge/internal/sink"
	"github.com/tamzrod/sensor-bridge/internal/store"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		logger.Fatal().Msg("usage: bridge <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("config validation failed")
	}
	config.Normalize(cfg)

	b := cfg.Bridge
	ctx := context.Background()

	// --------------------
	// Shared infrastructure
	// --------------------

	metrics := observability.New()
	table := store.NewTable(b.Server.HoldingSize, b.Server.DiscreteSize)
	server := store.NewServer(table, b.Server.MaxConns, logger.With().Str("component", "server").Logger())

	fan := sink.NewFanout(b.Fanout.Capacity, logger.With().Str("component", "fanout").Logger())
	observability.RegisterFanout(
		func() float64 { return float64(fan.Len()) },
		func() float64 { return float64(fan.Dropped()) },
	)

	// --------------------
	// Per-instrument acquisition loops
	// --------------------

	started := 0
	for _, in := range b.Instruments {
		// A broken instrument section must not take down the others.
		if err := config.ValidateInstrument(in); err != nil {
			logger.Error().Err(err).Str("instrument", in.ID).Msg("instrument config rejected, skipping")
			continue
		}

		loop, err := acquire.Build(in, table, server, fan, metrics, logger)
		if err != nil {
			logger.Error().Err(err).Str("instrument", in.ID).Msg("instrument build failed, skipping")
			continue
		}

		go loop.Run(ctx)
		started++
	}
	if started == 0 {
		logger.Fatal().Msg("no instrument could be started")
	}

	// --------------------
	// Presentation consumer
	// --------------------

	consumer := display.NewConsumer(display.Config{
		DrainInterval: time.Duration(b.Display.DrainIntervalMs) * time.Millisecond,
		HistoryPoints: b.Display.HistoryPoints,
		Thresholds: display.Thresholds{
			Upper: b.Display.UpperConcentration,
			Lower: b.Display.LowerConcentration,
		},
	}, fan.C(), logger.With().Str("component", "display").Logger())
	go consumer.Run(ctx)

	// --------------------
	// Metrics endpoint (optional)
	// --------------------

	if b.Metrics.Listen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(b.Metrics.Listen, mux); err != nil {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	// --------------------
	// Modbus slave front-end
	// --------------------

	addr := fmt.Sprintf("%s:%d", b.Server.Host, b.Server.Port)
	if err := server.Start(addr); err != nil {
		logger.Fatal().Err(err).Str("listen", addr).Msg("modbus server start failed")
	}

	// --------------------
	// Block forever (daemon-safe, no deadlock)
	// --------------------
	for {
		time.Sleep(time.Hour)
	}
}
