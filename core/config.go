package core

import (
	"fmt"
	"strings"
	"time"
)

type ExchangeConfig struct {
	Enabled         bool          `koanf:"enabled" mapstructure:"enabled"`
	DispatchTimeout time.Duration `koanf:"dispatch_timeout" mapstructure:"dispatch_timeout"`
}

type LookupConfig struct {
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Lookup      LookupConfig   `koanf:"lookup" mapstructure:"lookup"`
	Exchange    ExchangeConfig `koanf:"exchange" mapstructure:"exchange"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "partneragent",
		Lookup: LookupConfig{
			Timeout: 10 * time.Second,
		},
		Exchange: ExchangeConfig{
			Enabled:         true,
			DispatchTimeout: 15 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Lookup.Timeout < 0 {
		return fmt.Errorf("core: lookup.timeout must be >= 0")
	}
	if c.Exchange.DispatchTimeout < 0 {
		return fmt.Errorf("core: exchange.dispatch_timeout must be >= 0")
	}
	return nil
}
