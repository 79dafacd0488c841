// Package config loads contentbind settings from defaults, an optional YAML
// file and CONTENTBIND_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/contentful"
	"github.com/goliatone/go-contentbind/pkg/property"
)

// EnvPrefix marks environment variables read as configuration.
const EnvPrefix = "CONTENTBIND_"

// Config holds every setting the CLI understands.
type Config struct {
	SpaceID     string        `koanf:"space_id"`
	AccessToken string        `koanf:"access_token"`
	Environment string        `koanf:"environment"`
	Endpoint    string        `koanf:"endpoint"`
	Timeout     time.Duration `koanf:"timeout"`
	DateFormat  string        `koanf:"date_format"`
	Strict      bool          `koanf:"strict"`
	Seed        uint64        `koanf:"seed"`
	Verbosity   int           `koanf:"verbosity"`
}

func defaults() map[string]any {
	return map[string]any{
		"environment": contentful.DefaultEnvironment,
		"endpoint":    contentful.DefaultEndpoint,
		"timeout":     contentful.DefaultTimeout.String(),
		"date_format": property.DefaultDateFormat,
		"strict":      false,
		"seed":        0,
		"verbosity":   0,
	}
}

// Load builds the configuration. path names an optional YAML file; a blank
// path skips it, a missing named file is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, binderr.Configuration("config file %s not found", path).With("path", path)
			}
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, binderr.Wrapf(err, binderr.CodeConfiguration, "failed to load config from %s", path).With("path", path)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, binderr.Wrap(err, binderr.CodeConfiguration, "failed to decode config")
	}
	return &cfg, nil
}

// Validate checks the settings a remote fetch needs.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.SpaceID) == "" {
		missing = append(missing, "space_id")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return binderr.Configuration("missing required settings: %s", strings.Join(missing, ", ")).
			With("missing", missing)
	}
	if c.Timeout < 0 {
		return binderr.Configuration("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// HTTPConfig returns the fetcher settings.
func (c *Config) HTTPConfig() contentful.HTTPConfig {
	return contentful.HTTPConfig{
		Endpoint:    c.Endpoint,
		SpaceID:     c.SpaceID,
		Environment: c.Environment,
		AccessToken: c.AccessToken,
		Timeout:     c.Timeout,
	}
}

// Rand returns a source seeded from Seed, or nil when Seed is zero so random
// order draws from the global source.
func (c *Config) Rand() *rand.Rand {
	if c.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(c.Seed, c.Seed))
}
