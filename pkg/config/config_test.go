package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/root4loot/sitesnap/pkg/capture"
	"github.com/root4loot/sitesnap/pkg/postprocess"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}

	opts, err := cfg.CaptureOptions()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(capture.DefaultOptions(), opts); diff != "" {
		t.Errorf("Unexpected capture options (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(postprocess.DefaultOptions(), cfg.PostProcessOptions()); diff != "" {
		t.Errorf("Unexpected post-process options (-want +got):\n%s", diff)
	}
	if cfg.OutputDir() != "screenshots" {
		t.Errorf("Expected output dir screenshots, got %s", cfg.OutputDir())
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitesnap.yaml")
	data := strings.Join([]string{
		"profile: full",
		"backend: rod",
		"driver:",
		"  dir: /opt/drivers",
		"  channel: Beta",
		"capture:",
		"  page_load_timeout: 30s",
		"  settle_delay: 1500ms",
		"  imprint: true",
		"postprocess:",
		"  enabled: true",
		"  resize_width: 640",
		"  quality: 75",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Profile != "full" || cfg.Backend != "rod" {
		t.Errorf("Expected full/rod, got %s/%s", cfg.Profile, cfg.Backend)
	}
	if cfg.Driver.Dir != "/opt/drivers" || cfg.Driver.Channel != "Beta" {
		t.Errorf("Unexpected driver config %+v", cfg.Driver)
	}
	if cfg.Driver.FallbackDriverVersion != "124.0.6367.0" {
		t.Errorf("Expected untouched fallback driver version, got %s", cfg.Driver.FallbackDriverVersion)
	}
	if cfg.Capture.PageLoadTimeout != 30*time.Second || cfg.Capture.SettleDelay != 1500*time.Millisecond {
		t.Errorf("Unexpected capture timings %+v", cfg.Capture)
	}
	if cfg.Capture.BottomDelay != 3*time.Second {
		t.Errorf("Expected default bottom delay, got %v", cfg.Capture.BottomDelay)
	}
	if !cfg.PostProcess.Enabled || cfg.PostProcess.ResizeWidth != 640 || cfg.PostProcess.Quality != 75 {
		t.Errorf("Unexpected post-process config %+v", cfg.PostProcess)
	}
	if cfg.OutputDir() != "screenshots_full" {
		t.Errorf("Expected screenshots_full, got %s", cfg.OutputDir())
	}

	m := cfg.Manager()
	if m.Catalog.Channel != "Beta" || m.Provisioner.Dir != "/opt/drivers" {
		t.Errorf("Expected manager to use configured channel and dir, got %s and %s", m.Catalog.Channel, m.Provisioner.Dir)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("capture: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SITESNAP_PROFILE", "widescreen")
	t.Setenv("SITESNAP_BACKEND", "chromedp")
	t.Setenv("SITESNAP_CHROME", "/opt/chrome/chrome")
	t.Setenv("SITESNAP_SETTLE_DELAY", "2s")
	t.Setenv("SITESNAP_IMPRINT", "true")
	t.Setenv("SITESNAP_RESIZE_WIDTH", "1024")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Profile != "widescreen" || cfg.Backend != "chromedp" {
		t.Errorf("Expected widescreen/chromedp, got %s/%s", cfg.Profile, cfg.Backend)
	}
	if cfg.Driver.BrowserPath != "/opt/chrome/chrome" {
		t.Errorf("Expected browser path override, got %s", cfg.Driver.BrowserPath)
	}
	if cfg.Capture.SettleDelay != 2*time.Second || !cfg.Capture.Imprint {
		t.Errorf("Unexpected capture config %+v", cfg.Capture)
	}
	if cfg.PostProcess.ResizeWidth != 1024 {
		t.Errorf("Expected resize width 1024, got %d", cfg.PostProcess.ResizeWidth)
	}
	if m := cfg.Manager(); m.Resolver.BrowserPath != "/opt/chrome/chrome" {
		t.Errorf("Expected resolver override, got %s", m.Resolver.BrowserPath)
	}
}

func TestEnvOverrideErrors(t *testing.T) {
	t.Setenv("SITESNAP_RESIZE_WIDTH", "wide")
	t.Setenv("SITESNAP_PAGE_LOAD_TIMEOUT", "forever")

	_, err := Load("")
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, key := range []string{"SITESNAP_RESIZE_WIDTH", "SITESNAP_PAGE_LOAD_TIMEOUT"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Expected %s in error, got %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"profile", func(c *Config) { c.Profile = "portrait" }, "unknown capture profile"},
		{"backend", func(c *Config) { c.Backend = "selenium" }, "unknown backend"},
		{"driver dir", func(c *Config) { c.Driver.Dir = "" }, "driver dir"},
		{"timeout", func(c *Config) { c.Capture.PageLoadTimeout = 0 }, "page load timeout"},
		{"delay", func(c *Config) { c.Capture.TopDelay = -time.Second }, "settle delays"},
		{"width", func(c *Config) { c.PostProcess.ResizeWidth = 0 }, "resize width"},
		{"quality", func(c *Config) { c.PostProcess.Quality = 101 }, "webp quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	cfg := Default()
	cfg.PostProcess.Resize = false
	cfg.PostProcess.ResizeWidth = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected zero width to be valid without resize, got %v", err)
	}
}
