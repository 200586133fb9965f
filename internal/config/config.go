// Package config loads the simulation daemon's configuration from file and
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the nuberd simulation daemon.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	// Regions maps region names to their admission capacities.
	Regions map[string]int `mapstructure:"regions" validate:"required,min=1,dive,gt=0"`

	// Workers is the size of the shared worker roster.
	Workers int `mapstructure:"workers" validate:"gt=0"`

	// MaxPickupDelay bounds every worker's simulated pickup travel time.
	MaxPickupDelay time.Duration `mapstructure:"max_pickup_delay" validate:"gte=0"`

	// AcquireTimeout is the per-attempt worker acquisition timeout.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" validate:"gt=0"`

	// AcquireAttempts bounds acquisition retries before a job fails.
	AcquireAttempts int `mapstructure:"acquire_attempts" validate:"gte=1"`

	// GracePeriod bounds each region's drain during shutdown.
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gt=0"`

	// Requests is how many simulated requests to submit in total.
	Requests int `mapstructure:"requests" validate:"gt=0"`

	// MaxRequestDuration bounds each request's declared service duration.
	MaxRequestDuration time.Duration `mapstructure:"max_request_duration" validate:"gt=0"`

	// SubmitRate paces request submission, in requests per second.
	SubmitRate float64 `mapstructure:"submit_rate" validate:"gt=0"`

	// MetricsAddr is the listen address for the Prometheus endpoint;
	// empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// LogEvents enables console lifecycle event logging.
	LogEvents bool `mapstructure:"log_events"`
}

// Load loads configuration from file and environment variables, applying
// defaults for everything not set. extraPaths are searched for a
// config.yaml before the defaults of ./configs and the working directory.
func Load(extraPaths ...string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("regions", map[string]int{"north": 5, "south": 5})
	v.SetDefault("workers", 10)
	v.SetDefault("max_pickup_delay", "400ms")
	v.SetDefault("acquire_timeout", "5s")
	v.SetDefault("acquire_attempts", 3)
	v.SetDefault("grace_period", "30s")
	v.SetDefault("requests", 50)
	v.SetDefault("max_request_duration", "2s")
	v.SetDefault("submit_rate", 25.0)
	v.SetDefault("metrics_addr", ":9095")
	v.SetDefault("log_events", true)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range extraPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NUBER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found; defaults and env vars are enough.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
