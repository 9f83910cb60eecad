package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/ticketstore/internal/shared/config"
)

type Config struct {
	Store   sharedConfig.StoreConfig   `mapstructure:"store"`
	Logger  sharedConfig.LoggerConfig  `mapstructure:"logger"`
	Loadgen sharedConfig.LoadgenConfig `mapstructure:"loadgen"`
}

// Load loads configuration from an optional config file and environment variables.
// A missing config file is not an error; defaults and TICKETSTORE_* variables apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("TICKETSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Store defaults
	v.SetDefault("store.transport_capacity", 64)
	v.SetDefault("store.backpressure_policy", "blocking")
	v.SetDefault("store.fatal_panics", false)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Loadgen defaults
	v.SetDefault("loadgen.producers", 8)
	v.SetDefault("loadgen.requests_per_producer", 100)
	v.SetDefault("loadgen.retry_base_ms", 2)
	v.SetDefault("loadgen.max_retries", 10)
}
