package config

import "time"

// StoreConfig configures one launched ticket store.
type StoreConfig struct {
	// TransportCapacity bounds the command queue. 0 means unbounded.
	TransportCapacity int `mapstructure:"transport_capacity"`
	// BackpressurePolicy is "blocking" or "fail-fast"; ignored when unbounded.
	BackpressurePolicy string `mapstructure:"backpressure_policy"`
	// FatalPanics lets a panic inside one command terminate the actor. By
	// default the panic becomes an internal error reply to that command only.
	FatalPanics bool `mapstructure:"fatal_panics"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type LoadgenConfig struct {
	Producers           int `mapstructure:"producers"`
	RequestsPerProducer int `mapstructure:"requests_per_producer"`
	RetryBaseMs         int `mapstructure:"retry_base_ms"`
	MaxRetries          int `mapstructure:"max_retries"`
}

func (l *LoadgenConfig) RetryBase() time.Duration {
	return time.Duration(l.RetryBaseMs) * time.Millisecond
}
