// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	Fanout      FanoutConfig       `yaml:"fanout"`
	Display     DisplayConfig      `yaml:"display"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// ---- SERVER ----

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MaxConns caps concurrent SCADA clients, defaulted by Normalize.
	MaxConns int `yaml:"max_conns"`

	// Bank sizes, defaulted by Normalize.
	HoldingSize  int `yaml:"holding_size"`
	DiscreteSize int `yaml:"discrete_size"`
}

// ---- METRICS (optional) ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ---- FAN-OUT ----

type FanoutConfig struct {
	Capacity int `yaml:"capacity"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	DrainIntervalMs    int     `yaml:"drain_interval_ms"`
	HistoryPoints      int     `yaml:"history_points"`
	UpperConcentration float64 `yaml:"upper_concentration"`
	LowerConcentration float64 `yaml:"lower_concentration"`
}

// ---- INSTRUMENT ----

type InstrumentConfig struct {
	ID        string `yaml:"id"`
	Transport string `yaml:"transport"` // "tcp" | "serial"

	TCP    *TCPConfig    `yaml:"tcp"`
	Serial *SerialConfig `yaml:"serial"`

	UnitID  uint8 `yaml:"unit_id"`  // tcp
	SlaveID uint8 `yaml:"slave_id"` // serial (RTU slave address)

	TimeoutMs        int `yaml:"timeout_ms"`
	PollIntervalMs   int `yaml:"poll_interval_ms"`
	ReconnectDelayMs int `yaml:"reconnect_delay_ms"`

	// WordOrder is required whenever float channels are read. It is a device
	// property that cannot be detected at runtime.
	WordOrder string `yaml:"word_order"`

	Read        *ReadConfig        `yaml:"read"`
	Channels    []ChannelConfig    `yaml:"channels"`
	Derived     *DerivedConfig     `yaml:"derived"`
	Calibration *CalibrationConfig `yaml:"calibration"`
	Setup       *SetupConfig       `yaml:"setup"`
	Discrete    *DiscreteConfig    `yaml:"discrete"`

	// StatusSlot is the base holding register of the health block (opt-in).
	StatusSlot *uint16 `yaml:"status_slot"`
}

type TCPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SerialConfig struct {
	Port     string `yaml:"port"`
	Baudrate int    `yaml:"baudrate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
}

// ---- READ GEOMETRY ----

type ReadConfig struct {
	Address uint16 `yaml:"address"`
	Count   uint16 `yaml:"count"`
}

// ChannelConfig is one float32 value inside the instrument's read block.
type ChannelConfig struct {
	Key         string  `yaml:"key"`
	Offset      uint16  `yaml:"offset"`
	EchoAddress *uint16 `yaml:"echo_address"` // raw word echo into the table (optional)
}

// DerivedConfig is a value computed from a float channel via the calibration
// model and stored as a scaled integer.
type DerivedConfig struct {
	Key          string  `yaml:"key"`
	From         string  `yaml:"from"`
	Scale        float64 `yaml:"scale"`
	StoreAddress *uint16 `yaml:"store_address"`
}

type CalibrationConfig struct {
	Slope     float64 `yaml:"slope"`
	Intercept float64 `yaml:"intercept"`
}

// SetupConfig is the one-time device configuration write (read-modify-write
// of a mode register on first connect).
type SetupConfig struct {
	Address uint16 `yaml:"address"`
	Value   uint16 `yaml:"value"`
}

// DiscreteConfig is a block of discrete inputs with one key per bit.
type DiscreteConfig struct {
	Address       uint16   `yaml:"address"`
	Count         uint16   `yaml:"count"`
	Keys          []string `yaml:"keys"`
	MirrorAddress *uint16  `yaml:"mirror_address"`
}

// Load reads and decodes the configuration file. Validation is separate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
