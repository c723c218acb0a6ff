// Package config holds process configuration for the web handler.
package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConnectionTimeout     = 60
	DefaultInventoryLimiterDelay = 3
	DefaultUserAgent             = "Mozilla/5.0 (X11; Linux x86_64; Valve Steam Client) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36"
)

type Config struct {
	// ConnectionTimeout is expressed in seconds. It bounds both the
	// login poll-wait and, divided by four, the session freshness TTL.
	ConnectionTimeout int `yaml:"connection_timeout"`

	// InventoryLimiterDelay is the cooldown in seconds held against the
	// inventory throttle after every inventory request completes.
	InventoryLimiterDelay int `yaml:"inventory_limiter_delay"`

	UserAgent string `yaml:"user_agent"`
}

func Default() Config {
	return Config{
		ConnectionTimeout:     DefaultConnectionTimeout,
		InventoryLimiterDelay: DefaultInventoryLimiterDelay,
		UserAgent:             DefaultUserAgent,
	}
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "config: reading %s", path)
	}

	conf := Default()
	if err = yaml.Unmarshal(data, &conf); err != nil {
		return Config{}, eris.Wrapf(err, "config: parsing %s", path)
	}

	if conf.ConnectionTimeout <= 0 {
		conf.ConnectionTimeout = DefaultConnectionTimeout
	}
	if conf.InventoryLimiterDelay < 0 {
		conf.InventoryLimiterDelay = DefaultInventoryLimiterDelay
	}

	return conf, nil
}
