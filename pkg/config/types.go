package config

import "time"

// Config is the root configuration structure
type Config struct {
	Pair    string        `yaml:"pair"`
	Server  ServerConfig  `yaml:"server"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Feed    FeedConfig    `yaml:"feed"`
	Pool    PoolConfig    `yaml:"pool"`
	Keeper  KeeperConfig  `yaml:"keeper"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP and WebSocket API
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// WSConfig configures the WebSocket event stream
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// OracleConfig configures the failover oracle and its TWAP accumulator
type OracleConfig struct {
	MaxStaleness Duration `yaml:"max_staleness"` // primary feed freshness bound
	TWAPWindow   Duration `yaml:"twap_window"`   // window used by getPrice cross-checks
	MinWindow    Duration `yaml:"min_window"`    // floor below which consult is rejected
	DeviationBps int64    `yaml:"deviation_bps"` // primary/secondary disagreement threshold
	Capacity     int      `yaml:"capacity"`      // observation ring size
}

// FeedConfig configures the primary push-style price feed
type FeedConfig struct {
	RPCURL  string   `yaml:"rpc_url"`
	Address string   `yaml:"address"`
	Timeout Duration `yaml:"timeout"`
}

// PoolConfig configures the constant-product pool used as the spot source
type PoolConfig struct {
	RPCURL         string   `yaml:"rpc_url"`
	Address        string   `yaml:"address"`
	Token0Decimals int      `yaml:"token0_decimals"`
	Token1Decimals int      `yaml:"token1_decimals"`
	Invert         bool     `yaml:"invert"` // quote token0 in token1 terms instead
	Timeout        Duration `yaml:"timeout"`
}

// KeeperConfig configures the spot observation keeper
type KeeperConfig struct {
	Interval Duration `yaml:"interval"`
}

// StorageConfig configures the SQLite event journal
type StorageConfig struct {
	Path      string `yaml:"path"`
	MaxEvents int    `yaml:"max_events"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
