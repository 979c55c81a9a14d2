package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/root4loot/goutils/log"
)

const (
	// DefaultEndpoint lists the latest driver version per release channel.
	DefaultEndpoint = "https://googlechromelabs.github.io/chrome-for-testing/last-known-good-versions.json"

	// DefaultDownloadBase is where driver archives are published, keyed by version and platform.
	DefaultDownloadBase = "https://storage.googleapis.com/chrome-for-testing-public"

	// FallbackDriverVersion is used when the endpoint cannot be reached.
	FallbackDriverVersion = "124.0.6367.0"

	DefaultChannel = "Stable"
)

// Platform is the driver build tag for a host OS and architecture.
type Platform string

const (
	Win64    Platform = "win64"
	Linux64  Platform = "linux64"
	MacX64   Platform = "mac-x64"
	MacArm64 Platform = "mac-arm64"
)

// PlatformFor maps a GOOS/GOARCH pair to its driver platform tag.
func PlatformFor(goos, goarch string) (Platform, error) {
	switch goos {
	case "windows":
		return Win64, nil
	case "linux":
		return Linux64, nil
	case "darwin":
		if goarch == "arm64" {
			return MacArm64, nil
		}
		return MacX64, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

// Spec identifies one driver build to download.
type Spec struct {
	Version     string
	Platform    Platform
	DownloadURL string
	// Fallback is set when Version is the hardcoded fallback rather than the endpoint's answer.
	Fallback bool
}

// Major returns the major component of the driver version.
func (s Spec) Major() string {
	return majorOf(s.Version)
}

// Catalog answers which driver version to use for the host.
type Catalog struct {
	Endpoint        string
	DownloadBase    string
	Channel         string
	FallbackVersion string
	GOOS            string
	GOARCH          string
	Client          *http.Client
}

// NewCatalog returns a Catalog for the host platform with default endpoints.
func NewCatalog() *Catalog {
	return &Catalog{
		Endpoint:        DefaultEndpoint,
		DownloadBase:    DefaultDownloadBase,
		Channel:         DefaultChannel,
		FallbackVersion: FallbackDriverVersion,
		GOOS:            runtime.GOOS,
		GOARCH:          runtime.GOARCH,
		Client:          &http.Client{Timeout: 30 * time.Second},
	}
}

type lastKnownGood struct {
	Channels map[string]struct {
		Channel  string `json:"channel"`
		Version  string `json:"version"`
		Revision string `json:"revision"`
	} `json:"channels"`
}

// BuildSpec picks the latest driver version for the configured channel. Network or decoding
// failures are not returned; the fallback version is substituted and Spec.Fallback is set.
// Only an unsupported host platform is an error.
func (c *Catalog) BuildSpec(ctx context.Context, browserVersion string) (Spec, error) {
	platform, err := PlatformFor(c.GOOS, c.GOARCH)
	if err != nil {
		return Spec{}, err
	}

	log.Debugf("Looking up %s driver for browser major version %s", c.Channel, majorOf(browserVersion))

	spec := Spec{Platform: platform}
	version, err := c.latest(ctx)
	if err != nil {
		log.Warnf("Could not fetch latest driver version, falling back to %s: %v", c.FallbackVersion, err)
		version = c.FallbackVersion
		spec.Fallback = true
	}

	spec.Version = version
	spec.DownloadURL = c.DownloadURL(version, platform)
	return spec, nil
}

// DownloadURL returns the archive URL of a driver build.
func (c *Catalog) DownloadURL(version string, platform Platform) string {
	return fmt.Sprintf("%s/%s/%s/chromedriver-%s.zip", c.DownloadBase, version, platform, platform)
}

func (c *Catalog) latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return "", err
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var data lastKnownGood
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decoding %s: %w", c.Endpoint, err)
	}

	channel, ok := data.Channels[c.Channel]
	if !ok || channel.Version == "" {
		return "", fmt.Errorf("channel %q not listed", c.Channel)
	}
	log.Debugf("Latest %s driver version is %s", c.Channel, channel.Version)
	return channel.Version, nil
}
