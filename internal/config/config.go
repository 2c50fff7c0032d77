// Package config reads the runtime settings from PICKUPFORM_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/goliatone/go-pickupform/pkg/compose"
	"github.com/goliatone/go-pickupform/pkg/host"
	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
)

// Prefix is prepended to every variable name.
const Prefix = "PICKUPFORM"

// Config holds runtime configuration.
type Config struct {
	HostAppID        string `envconfig:"HOST_APP_ID"`
	LineChannelToken string `envconfig:"LINE_CHANNEL_TOKEN"`
	LineUserID       string `envconfig:"LINE_USER_ID"`
	LineAPIBase      string `envconfig:"LINE_API_BASE" default:"https://api.line.me"`

	PostalEndpoint string        `envconfig:"POSTAL_ENDPOINT" default:"https://zipcloud.ibsnet.co.jp/api/search"`
	LookupTimeout  time.Duration `envconfig:"LOOKUP_TIMEOUT" default:"5s"`
	LookupDebounce time.Duration `envconfig:"LOOKUP_DEBOUNCE" default:"0s"`
	SendTimeout    time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`

	Variant     string `envconfig:"VARIANT"`
	RulesFile   string `envconfig:"RULES_FILE"`
	MergePolicy string `envconfig:"MERGE_POLICY"`

	TemplateDir string            `envconfig:"TEMPLATE_DIR"`
	BannerData  map[string]string `envconfig:"BANNER_DATA"`

	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if c.HostEnabled() && strings.TrimSpace(c.HostAppID) == "" {
		return errors.New("config: PICKUPFORM_HOST_APP_ID must be provided when the LINE host is enabled")
	}
	if c.MergePolicy != "" && !model.MergePolicy(c.MergePolicy).Valid() {
		return fmt.Errorf("config: unknown merge policy %q", c.MergePolicy)
	}
	if c.LookupTimeout <= 0 {
		return errors.New("config: lookup timeout must be positive")
	}
	if c.SendTimeout <= 0 {
		return errors.New("config: send timeout must be positive")
	}
	if c.LookupDebounce < 0 {
		return errors.New("config: lookup debounce must not be negative")
	}
	if c.TemplateDir != "" {
		info, err := os.Stat(c.TemplateDir)
		if err != nil {
			return fmt.Errorf("config: template dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config: template dir %s is not a directory", c.TemplateDir)
		}
	}
	return nil
}

// HostEnabled reports whether a LINE channel token is configured.
func (c *Config) HostEnabled() bool {
	return c != nil && strings.TrimSpace(c.LineChannelToken) != ""
}

// Messaging returns the LINE client settings.
func (c *Config) Messaging() host.MessagingConfig {
	return host.MessagingConfig{
		AppID:        c.HostAppID,
		ChannelToken: c.LineChannelToken,
		UserID:       c.LineUserID,
		APIBase:      c.LineAPIBase,
	}
}

// ComposeOptions returns the summary banner options: templates from
// TemplateDir and BannerData as banner globals.
func (c *Config) ComposeOptions() []compose.Option {
	opts := []compose.Option{compose.WithTemplateDir(c.TemplateDir)}
	if len(c.BannerData) > 0 {
		globals := make(map[string]any, len(c.BannerData))
		for key, value := range c.BannerData {
			globals[key] = value
		}
		opts = append(opts, compose.WithGlobals(globals))
	}
	return opts
}

// PostalOptions returns the lookup client options.
func (c *Config) PostalOptions() []postal.Option {
	return []postal.Option{
		postal.WithEndpoint(c.PostalEndpoint),
		postal.WithTimeout(c.LookupTimeout),
	}
}
