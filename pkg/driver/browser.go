package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/root4loot/goutils/log"
)

// FallbackBrowserVersion is assumed when every version probe fails.
const FallbackBrowserVersion = "135.0.0.0"

// BrowserInfo describes the browser binary that sessions will be launched against.
type BrowserInfo struct {
	ExecutablePath string
	Version        string
	// VersionFallback is set when Version is FallbackVersion rather than a detected value.
	VersionFallback bool
}

// Major returns the major component of the browser version.
func (b BrowserInfo) Major() string {
	return majorOf(b.Version)
}

// Locator returns the path of a browser binary, or false if it found none.
type Locator struct {
	Name   string
	Locate func() (string, bool)
}

// Resolver finds the installed browser and determines its version.
type Resolver struct {
	// BrowserPath overrides discovery when set.
	BrowserPath string

	// FallbackVersion is used when no probe yields a version.
	FallbackVersion string

	GOOS string

	// Hooks for tests.
	stat     func(string) (os.FileInfo, error)
	lookPath func(string) (string, error)
	getenv   func(string) string
	rodLook  func() (string, bool)
	run      commandRunner
}

// NewResolver returns a Resolver for the host platform.
func NewResolver() *Resolver {
	return &Resolver{
		FallbackVersion: FallbackBrowserVersion,
		GOOS:            runtime.GOOS,
		stat:            os.Stat,
		lookPath:        exec.LookPath,
		getenv:          os.Getenv,
		rodLook:         launcher.LookPath,
		run:             runCommand,
	}
}

// Resolve locates the browser and detects its version.
func (r *Resolver) Resolve(ctx context.Context) (BrowserInfo, error) {
	path, err := r.ResolveBrowser()
	if err != nil {
		return BrowserInfo{}, err
	}

	version, err := r.ResolveVersion(ctx, path)
	if err != nil {
		log.Warnf("Could not determine browser version, assuming %s: %v", r.FallbackVersion, err)
		return BrowserInfo{ExecutablePath: path, Version: r.FallbackVersion, VersionFallback: true}, nil
	}

	return BrowserInfo{ExecutablePath: path, Version: version}, nil
}

// ResolveBrowser returns the first browser path found by the locator chain.
func (r *Resolver) ResolveBrowser() (string, error) {
	for _, l := range r.Locators() {
		if path, ok := l.Locate(); ok {
			log.Debugf("Browser found by %s locator: %s", l.Name, path)
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: install Google Chrome or Chromium, or set CHROME_PATH", ErrBrowserNotFound)
}

// Locators returns the ordered browser discovery chain for the resolver's platform.
func (r *Resolver) Locators() []Locator {
	return []Locator{
		{Name: "override", Locate: func() (string, bool) { return r.existing(r.BrowserPath) }},
		{Name: "env", Locate: func() (string, bool) { return r.existing(r.getenv("CHROME_PATH")) }},
		{Name: "well-known", Locate: func() (string, bool) { return r.firstExisting(r.wellKnownPaths()) }},
		{Name: "path", Locate: r.searchPath},
		{Name: "rod", Locate: r.rodLookPath},
	}
}

func (r *Resolver) existing(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	info, err := r.stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func (r *Resolver) firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if path, ok := r.existing(p); ok {
			return path, true
		}
	}
	return "", false
}

func (r *Resolver) wellKnownPaths() []string {
	switch r.GOOS {
	case "windows":
		var paths []string
		for _, env := range []string{"PROGRAMFILES", "PROGRAMFILES(X86)", "LOCALAPPDATA"} {
			if base := r.getenv(env); base != "" {
				paths = append(paths, filepath.Join(base, "Google", "Chrome", "Application", "chrome.exe"))
			}
		}
		return paths
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	}
	return nil
}

func (r *Resolver) searchPath() (string, bool) {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium-browser", "chromium"} {
		if path, err := r.lookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// rodLookPath asks rod's launcher, which also knows browsers it downloaded itself.
func (r *Resolver) rodLookPath() (string, bool) {
	if r.GOOS != runtime.GOOS || r.rodLook == nil {
		return "", false
	}
	path, found := r.rodLook()
	if !found {
		return "", false
	}
	return r.existing(path)
}

func majorOf(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return major
}
