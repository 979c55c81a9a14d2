// Package session launches isolated headless browser sessions through interchangeable backends.
package session

import (
	"context"
	"fmt"
	"time"
)

// Session is one headless browser window.
type Session interface {
	// Navigate loads url and returns once the page has loaded or the page-load timeout expires.
	Navigate(ctx context.Context, url string) error

	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Eval evaluates a JavaScript expression and decodes its value into out, if out is non-nil.
	Eval(ctx context.Context, expr string, out any) error

	// Resize sets the viewport size.
	Resize(ctx context.Context, width, height int) error

	// Close tears the session down.
	Close() error
}

// Launcher starts sessions.
type Launcher interface {
	Name() string
	Launch(ctx context.Context, opts Options) (Session, error)
}

// Options configure a session launch.
type Options struct {
	BrowserPath string
	// DriverPath is the automation driver executable, used by the webdriver backend.
	DriverPath string

	Width  int
	Height int

	PageLoadTimeout time.Duration

	Headless                bool
	IgnoreCertificateErrors bool
}

// DefaultOptions returns options for a square 1920px headless session.
func DefaultOptions() Options {
	return Options{
		Width:                   1920,
		Height:                  1920,
		PageLoadTimeout:         60 * time.Second,
		Headless:                true,
		IgnoreCertificateErrors: true,
	}
}

// Browser command line shared by all backends.
func (o Options) browserArgs() []string {
	args := []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		fmt.Sprintf("--window-size=%d,%d", o.Width, o.Height),
	}
	if o.Headless {
		args = append(args, "--headless=new")
	}
	if o.IgnoreCertificateErrors {
		args = append(args, "--ignore-certificate-errors")
	}
	return args
}

const (
	BackendWebDriver = "webdriver"
	BackendRod       = "rod"
	BackendChromedp  = "chromedp"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendWebDriver, BackendRod, BackendChromedp}

// New returns the launcher for a backend name.
func New(backend string) (Launcher, error) {
	switch backend {
	case BackendWebDriver, "":
		return NewWebDriver(), nil
	case BackendRod:
		return Rod{}, nil
	case BackendChromedp:
		return Chromedp{}, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", backend)
}

// Scripts evaluated by the capture engine.
const (
	ScrollToBottom = "window.scrollTo(0, document.body.scrollHeight)"
	ScrollToTop    = "window.scrollTo(0, 0)"
	DocumentHeight = "Math.max(document.body.scrollHeight, document.documentElement.scrollHeight)"
)
