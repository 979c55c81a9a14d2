package driver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/root4loot/goutils/log"
)

var versionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+\.\d+)`)

const probeTimeout = 10 * time.Second

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// VersionProbe queries the version of the browser at a path.
type VersionProbe struct {
	Name  string
	Probe func(ctx context.Context, path string) (string, error)
}

// ResolveVersion runs the platform's probes in order and returns the first parseable version.
func (r *Resolver) ResolveVersion(ctx context.Context, path string) (string, error) {
	var errs []error
	for _, p := range r.VersionProbes() {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		version, err := p.Probe(pctx, path)
		cancel()
		if err == nil {
			log.Debugf("Browser version %s detected by %s probe", version, p.Name)
			return version, nil
		}
		log.Debugf("Version probe %s failed: %v", p.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return "", fmt.Errorf("%w: %w", ErrVersionDetection, errors.Join(errs...))
}

// VersionProbes returns the ordered version detection chain for the resolver's platform.
// Windows binaries carry file metadata, elsewhere the --version flag comes first and
// package metadata is the last resort.
func (r *Resolver) VersionProbes() []VersionProbe {
	switch r.GOOS {
	case "windows":
		return []VersionProbe{
			{Name: "wmic", Probe: r.probeWMIC},
			{Name: "powershell", Probe: r.probePowerShell},
			{Name: "version-flag", Probe: r.probeVersionFlag},
			{Name: "chrome.dll", Probe: r.probeSiblingDLL},
		}
	case "darwin":
		return []VersionProbe{
			{Name: "version-flag", Probe: r.probeVersionFlag},
			{Name: "bundle-info", Probe: r.probeBundleInfo},
		}
	default:
		return []VersionProbe{
			{Name: "version-flag", Probe: r.probeVersionFlag},
			{Name: "dpkg", Probe: r.probeDpkg},
			{Name: "rpm", Probe: r.probeRPM},
		}
	}
}

func (r *Resolver) probeWMIC(ctx context.Context, path string) (string, error) {
	escaped := strings.ReplaceAll(path, `\`, `\\`)
	return r.query(ctx, "wmic", "datafile", "where", fmt.Sprintf("name=%q", escaped), "get", "Version", "/value")
}

func (r *Resolver) probePowerShell(ctx context.Context, path string) (string, error) {
	return r.query(ctx, "powershell", "-NoProfile", "-Command",
		fmt.Sprintf("(Get-Item '%s').VersionInfo.ProductVersion", path))
}

func (r *Resolver) probeVersionFlag(ctx context.Context, path string) (string, error) {
	return r.query(ctx, path, "--version")
}

func (r *Resolver) probeSiblingDLL(ctx context.Context, path string) (string, error) {
	dll := filepath.Join(filepath.Dir(path), "chrome.dll")
	if _, ok := r.existing(dll); !ok {
		return "", fmt.Errorf("%s does not exist", dll)
	}
	return r.probePowerShell(ctx, dll)
}

func (r *Resolver) probeBundleInfo(ctx context.Context, path string) (string, error) {
	// <App>.app/Contents/MacOS/<binary> -> <App>.app/Contents/Info
	info := filepath.Join(filepath.Dir(filepath.Dir(path)), "Info")
	return r.query(ctx, "defaults", "read", info, "CFBundleShortVersionString")
}

func (r *Resolver) probeDpkg(ctx context.Context, path string) (string, error) {
	return r.query(ctx, "dpkg-query", "-W", "-f=${Version}", packageFor(path))
}

func (r *Resolver) probeRPM(ctx context.Context, path string) (string, error) {
	return r.query(ctx, "rpm", "-q", "--qf", "%{VERSION}", packageFor(path))
}

func (r *Resolver) query(ctx context.Context, name string, args ...string) (string, error) {
	out, err := r.run(ctx, name, args...)
	if err != nil {
		return "", err
	}
	return parseVersion(string(out))
}

// packageFor maps a binary to the distribution package that usually ships it.
func packageFor(path string) string {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "google-chrome") {
		return "google-chrome-stable"
	}
	return base
}

func parseVersion(output string) (string, error) {
	if match := versionPattern.FindString(output); match != "" {
		return match, nil
	}
	return "", fmt.Errorf("no version in %q", strings.TrimSpace(output))
}
