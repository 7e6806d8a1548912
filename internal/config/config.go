// Package config defines the configuration of the product service.
package config

import (
	"errors"
	"strings"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Database   config.DatabaseConfig  `koanf:"database"`
	Cache      config.CacheConfig     `koanf:"cache"`
	Auth       config.AuthConfig      `koanf:"auth"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Probes     config.ProbesConfig    `koanf:"probes"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
}

// String renders every section with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Cache.String())
	b.WriteString(c.Auth.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Probes.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	return errors.Join(
		c.HTTPServer.Validate(),
		c.Database.Validate(),
		c.Cache.Validate(),
		c.Auth.Validate(),
		c.Log.Validate(),
		c.PProf.Validate(),
		c.Telemetry.Validate(),
		c.Probes.Validate(),
		c.Shutdown.Validate(),
	)
}
