package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings are the runtime options of the command line tool.
type Settings struct {
	// Timeout bounds every HTTP round trip.
	Timeout time.Duration `mapstructure:"timeout"`
	// FailOnStatus turns non-2xx responses into transport errors.
	FailOnStatus bool `mapstructure:"fail_on_status"`
	// StrictArguments rejects argument references the class does not declare.
	StrictArguments bool          `mapstructure:"strict_arguments"`
	LogLevel        string        `mapstructure:"log_level"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Cache           CacheSettings `mapstructure:"cache"`
}

// CacheSettings selects the response cache backend.
type CacheSettings struct {
	Backend string        `mapstructure:"backend"`
	Redis   RedisSettings `mapstructure:"redis"`
}

// RedisSettings configures the redis cache backend.
type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoadSettings reads settings from path (or ./webapi.yaml when path is empty)
// and WEBAPI_* environment variables. A missing default file is not an error.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("fail_on_status", true)
	v.SetDefault("strict_arguments", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("webapi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WEBAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", s.Cache.Backend)
	}
	if s.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}
