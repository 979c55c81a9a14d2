package driver

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func newTestResolver(goos string, env map[string]string, run commandRunner) *Resolver {
	return &Resolver{
		FallbackVersion: FallbackBrowserVersion,
		GOOS:            goos,
		stat:            os.Stat,
		lookPath:        func(string) (string, error) { return "", exec.ErrNotFound },
		getenv:          func(k string) string { return env[k] },
		rodLook:         func() (string, bool) { return "", false },
		run:             run,
	}
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func failingRunner(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("command failed")
}

func TestResolveBrowserOrder(t *testing.T) {
	dir := t.TempDir()
	programFiles := filepath.Join(dir, "pf")
	wellKnown := touch(t, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe"))
	envPath := touch(t, filepath.Join(dir, "env", "chrome.exe"))
	override := touch(t, filepath.Join(dir, "override", "chrome.exe"))

	tests := []struct {
		name     string
		override string
		env      map[string]string
		want     string
	}{
		{"override wins", override, map[string]string{"CHROME_PATH": envPath, "PROGRAMFILES": programFiles}, override},
		{"env before well-known", "", map[string]string{"CHROME_PATH": envPath, "PROGRAMFILES": programFiles}, envPath},
		{"missing env is skipped", "", map[string]string{"CHROME_PATH": filepath.Join(dir, "nope"), "PROGRAMFILES": programFiles}, wellKnown},
		{"well-known", "", map[string]string{"PROGRAMFILES": programFiles}, wellKnown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver("windows", tt.env, failingRunner)
			r.BrowserPath = tt.override

			got, err := r.ResolveBrowser()
			if err != nil {
				t.Fatalf("ResolveBrowser() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveBrowserPathLookup(t *testing.T) {
	r := newTestResolver("plan9", nil, failingRunner)
	bin := touch(t, filepath.Join(t.TempDir(), "chromium"))
	r.lookPath = func(name string) (string, error) {
		if name == "chromium" {
			return bin, nil
		}
		return "", exec.ErrNotFound
	}

	got, err := r.ResolveBrowser()
	if err != nil {
		t.Fatalf("ResolveBrowser() error: %v", err)
	}
	if got != bin {
		t.Errorf("Expected %s, got %s", bin, got)
	}
}

func TestResolveBrowserNotFound(t *testing.T) {
	r := newTestResolver("windows", map[string]string{"PROGRAMFILES": t.TempDir()}, failingRunner)

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, ErrBrowserNotFound) {
		t.Fatalf("Expected ErrBrowserNotFound, got %v", err)
	}
}

func TestResolveVersion(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		outputs map[string]string
		want    string
	}{
		{
			name:    "version flag",
			goos:    "linux",
			outputs: map[string]string{"/opt/chrome": "Google Chrome 135.0.7049.84 \n"},
			want:    "135.0.7049.84",
		},
		{
			name:    "dpkg after version flag fails",
			goos:    "linux",
			outputs: map[string]string{"dpkg-query": "135.0.7049.95-1"},
			want:    "135.0.7049.95",
		},
		{
			name:    "wmic first on windows",
			goos:    "windows",
			outputs: map[string]string{"wmic": "\r\n\r\nVersion=134.0.6998.166\r\n", "/opt/chrome": "Google Chrome 1.2.3.4"},
			want:    "134.0.6998.166",
		},
		{
			name:    "powershell when wmic is unparseable",
			goos:    "windows",
			outputs: map[string]string{"wmic": "No Instance(s) Available.", "powershell": "133.0.6943.142\r\n"},
			want:    "133.0.6943.142",
		},
		{
			name:    "bundle info on darwin",
			goos:    "darwin",
			outputs: map[string]string{"defaults": "136.0.7103.48\n"},
			want:    "136.0.7103.48",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := func(_ context.Context, name string, _ ...string) ([]byte, error) {
				if out, ok := tt.outputs[name]; ok {
					return []byte(out), nil
				}
				return nil, errors.New("exit status 1")
			}
			r := newTestResolver(tt.goos, nil, run)

			got, err := r.ResolveVersion(context.Background(), "/opt/chrome")
			if err != nil {
				t.Fatalf("ResolveVersion() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected version %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveFallsBackToHardcodedVersion(t *testing.T) {
	bin := touch(t, filepath.Join(t.TempDir(), "chrome"))
	r := newTestResolver("linux", nil, failingRunner)
	r.BrowserPath = bin

	info, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if info.Version != FallbackBrowserVersion || !info.VersionFallback {
		t.Errorf("Expected fallback version %s, got %+v", FallbackBrowserVersion, info)
	}
	if info.ExecutablePath != bin {
		t.Errorf("Expected path %s, got %s", bin, info.ExecutablePath)
	}
}

func TestResolveVersionError(t *testing.T) {
	r := newTestResolver("linux", nil, failingRunner)

	_, err := r.ResolveVersion(context.Background(), "/opt/chrome")
	if !errors.Is(err, ErrVersionDetection) {
		t.Fatalf("Expected ErrVersionDetection, got %v", err)
	}
}
