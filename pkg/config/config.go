// Package config loads sitesnap settings from defaults, an optional YAML file and SITESNAP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/root4loot/sitesnap/pkg/capture"
	"github.com/root4loot/sitesnap/pkg/driver"
	"github.com/root4loot/sitesnap/pkg/postprocess"
	"github.com/root4loot/sitesnap/pkg/session"
	"gopkg.in/yaml.v3"
)

// Config holds all sitesnap settings.
type Config struct {
	Profile string `yaml:"profile"`
	Backend string `yaml:"backend"`
	// OutputBase overrides the profile's output directory.
	OutputBase string `yaml:"output_base"`

	Driver      DriverConfig      `yaml:"driver"`
	Capture     CaptureConfig     `yaml:"capture"`
	PostProcess PostProcessConfig `yaml:"postprocess"`
	Log         LogConfig         `yaml:"log"`
}

// DriverConfig controls browser discovery and driver provisioning.
type DriverConfig struct {
	Dir                    string `yaml:"dir"`          // default: "drivers"
	BrowserPath            string `yaml:"browser_path"` // skips discovery when set
	Channel                string `yaml:"channel"`      // default: "Stable"
	Endpoint               string `yaml:"endpoint"`
	FallbackBrowserVersion string `yaml:"fallback_browser_version"` // default: "135.0.0.0"
	FallbackDriverVersion  string `yaml:"fallback_driver_version"`  // default: "124.0.6367.0"
}

// CaptureConfig controls each capture.
type CaptureConfig struct {
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"` // default: 60s
	SettleDelay     time.Duration `yaml:"settle_delay"`      // default: 10s
	BottomDelay     time.Duration `yaml:"bottom_delay"`      // default: 3s
	TopDelay        time.Duration `yaml:"top_delay"`         // default: 2s
	Imprint         bool          `yaml:"imprint"`
}

// PostProcessConfig controls the resize and WebP pass.
type PostProcessConfig struct {
	Enabled     bool    `yaml:"enabled"` // run after every batch
	Resize      bool    `yaml:"resize"`
	ResizeWidth int     `yaml:"resize_width"`
	WebP        bool    `yaml:"webp"`
	Quality     float32 `yaml:"quality"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Debug   bool `yaml:"debug"`
	Silence bool `yaml:"silence"`
}

// Default returns the built-in configuration.
func Default() *Config {
	co := capture.DefaultOptions()
	po := postprocess.DefaultOptions()
	return &Config{
		Profile: capture.Regular.Name,
		Backend: session.BackendWebDriver,
		Driver: DriverConfig{
			Dir:                    "drivers",
			Channel:                driver.DefaultChannel,
			Endpoint:               driver.DefaultEndpoint,
			FallbackBrowserVersion: driver.FallbackBrowserVersion,
			FallbackDriverVersion:  driver.FallbackDriverVersion,
		},
		Capture: CaptureConfig{
			PageLoadTimeout: co.PageLoadTimeout,
			SettleDelay:     co.SettleDelay,
			BottomDelay:     co.BottomDelay,
			TopDelay:        co.TopDelay,
		},
		PostProcess: PostProcessConfig{
			Resize:      po.Resize,
			ResizeWidth: po.ResizeWidth,
			WebP:        po.SaveWebP,
			Quality:     po.Quality,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if path is not empty, and
// then with SITESNAP_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from SITESNAP_* environment variables.
func (c *Config) ApplyEnv() error {
	var errs []error
	c.Profile = envOr("SITESNAP_PROFILE", c.Profile)
	c.Backend = envOr("SITESNAP_BACKEND", c.Backend)
	c.OutputBase = envOr("SITESNAP_OUTPUT", c.OutputBase)

	c.Driver.Dir = envOr("SITESNAP_DRIVER_DIR", c.Driver.Dir)
	c.Driver.BrowserPath = envOr("SITESNAP_CHROME", c.Driver.BrowserPath)
	c.Driver.Channel = envOr("SITESNAP_CHANNEL", c.Driver.Channel)
	c.Driver.Endpoint = envOr("SITESNAP_ENDPOINT", c.Driver.Endpoint)

	c.Capture.PageLoadTimeout = envDurationOr("SITESNAP_PAGE_LOAD_TIMEOUT", c.Capture.PageLoadTimeout, &errs)
	c.Capture.SettleDelay = envDurationOr("SITESNAP_SETTLE_DELAY", c.Capture.SettleDelay, &errs)
	c.Capture.Imprint = envBoolOr("SITESNAP_IMPRINT", c.Capture.Imprint, &errs)

	c.PostProcess.Enabled = envBoolOr("SITESNAP_POSTPROCESS", c.PostProcess.Enabled, &errs)
	c.PostProcess.ResizeWidth = envIntOr("SITESNAP_RESIZE_WIDTH", c.PostProcess.ResizeWidth, &errs)

	c.Log.Debug = envBoolOr("SITESNAP_DEBUG", c.Log.Debug, &errs)
	return errors.Join(errs...)
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	var errs []error
	if _, err := capture.ProfileByName(c.Profile); err != nil {
		errs = append(errs, fmt.Errorf("%w (valid: %s)", err, strings.Join(capture.ProfileNames(), ", ")))
	}
	if !slices.Contains(session.Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("unknown backend %q (valid: %s)", c.Backend, strings.Join(session.Backends, ", ")))
	}
	if c.Driver.Dir == "" {
		errs = append(errs, errors.New("driver dir must not be empty"))
	}
	if c.Capture.PageLoadTimeout <= 0 {
		errs = append(errs, errors.New("page load timeout must be positive"))
	}
	if c.Capture.SettleDelay < 0 || c.Capture.BottomDelay < 0 || c.Capture.TopDelay < 0 {
		errs = append(errs, errors.New("settle delays must not be negative"))
	}
	if c.PostProcess.Resize && c.PostProcess.ResizeWidth <= 0 {
		errs = append(errs, fmt.Errorf("resize width must be positive, got %d", c.PostProcess.ResizeWidth))
	}
	if c.PostProcess.WebP && (c.PostProcess.Quality < 1 || c.PostProcess.Quality > 100) {
		errs = append(errs, fmt.Errorf("webp quality must be between 1 and 100, got %v", c.PostProcess.Quality))
	}
	return errors.Join(errs...)
}

// CaptureOptions returns the capture engine options for the configured profile.
func (c *Config) CaptureOptions() (capture.Options, error) {
	profile, err := capture.ProfileByName(c.Profile)
	if err != nil {
		return capture.Options{}, err
	}
	return capture.Options{
		Profile:         profile,
		PageLoadTimeout: c.Capture.PageLoadTimeout,
		SettleDelay:     c.Capture.SettleDelay,
		BottomDelay:     c.Capture.BottomDelay,
		TopDelay:        c.Capture.TopDelay,
		Imprint:         c.Capture.Imprint,
	}, nil
}

// PostProcessOptions returns the post-processing options.
func (c *Config) PostProcessOptions() postprocess.Options {
	return postprocess.Options{
		Resize:      c.PostProcess.Resize,
		ResizeWidth: c.PostProcess.ResizeWidth,
		SaveWebP:    c.PostProcess.WebP,
		Quality:     c.PostProcess.Quality,
	}
}

// Manager returns a driver manager using the configured discovery and catalog settings.
func (c *Config) Manager() *driver.Manager {
	m := driver.NewManager(c.Driver.Dir)
	m.Resolver.BrowserPath = c.Driver.BrowserPath
	m.Resolver.FallbackVersion = c.Driver.FallbackBrowserVersion
	m.Catalog.Channel = c.Driver.Channel
	m.Catalog.Endpoint = c.Driver.Endpoint
	m.Catalog.FallbackVersion = c.Driver.FallbackDriverVersion
	return m
}

// OutputDir returns where run directories are created.
func (c *Config) OutputDir() string {
	if c.OutputBase != "" {
		return c.OutputBase
	}
	if p, err := capture.ProfileByName(c.Profile); err == nil {
		return p.OutputSubdir
	}
	return capture.Regular.OutputSubdir
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envBoolOr(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func envDurationOr(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
