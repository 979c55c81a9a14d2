// Package capture takes the initial and settled screenshots of a single URL.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glaslos/ssdeep"
	"github.com/root4loot/goutils/log"
	"github.com/root4loot/sitesnap/pkg/driver"
	"github.com/root4loot/sitesnap/pkg/postprocess"
	"github.com/root4loot/sitesnap/pkg/session"
)

var (
	ErrLaunch     = errors.New("browser session could not be started")
	ErrNavigation = errors.New("navigation failed")
	ErrScreenshot = errors.New("screenshot failed")
	ErrSettle     = errors.New("settle sequence failed")
)

func init() {
	log.Init("sitesnap")
}

// Options control a capture.
type Options struct {
	Profile         Profile
	PageLoadTimeout time.Duration

	// Settle sequence: wait SettleDelay, scroll to the bottom, wait BottomDelay,
	// scroll to the top, wait TopDelay.
	SettleDelay time.Duration
	BottomDelay time.Duration
	TopDelay    time.Duration

	// Imprint prints the URL below each screenshot.
	Imprint bool
}

// DefaultOptions returns the regular profile with a 60 second page load timeout and a
// 10s/3s/2s settle sequence.
func DefaultOptions() Options {
	return Options{
		Profile:         Regular,
		PageLoadTimeout: 60 * time.Second,
		SettleDelay:     10 * time.Second,
		BottomDelay:     3 * time.Second,
		TopDelay:        2 * time.Second,
	}
}

// Result is the outcome of capturing one URL.
type Result struct {
	URL              string
	InitialImagePath string
	FinalImagePath   string
	Succeeded        bool

	// Err is why no screenshot could be taken.
	Err error
	// SettleErr is why the final screenshot is missing after a successful initial one.
	SettleErr error

	// Similarity is the ssdeep match score (0-100) between the initial and final
	// screenshots, or -1 when it could not be computed.
	Similarity int
}

// Engine captures URLs with one fresh browser session per URL.
type Engine struct {
	Launcher session.Launcher
	Browser  driver.BrowserInfo
	Driver   driver.Installation
	Options  Options

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine returns an Engine that launches sessions with l against the browser and driver
// of tc.
func NewEngine(l session.Launcher, tc *driver.Toolchain, opts Options) *Engine {
	e := &Engine{Launcher: l, Options: opts, sleep: sleepContext}
	if tc != nil {
		e.Browser = tc.Browser
		e.Driver = tc.Driver
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Capture navigates to rawURL and writes <name>_initial.png and, after the settle sequence,
// <name>_final.png into outputDir. It never fails: every error ends up in the Result.
func (e *Engine) Capture(ctx context.Context, rawURL, outputDir string) (result Result) {
	url := EnsureProtocol(rawURL)
	name := Sanitize(url)
	result = Result{URL: url, Similarity: -1}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: unexpected panic: %v", ErrScreenshot, r)
			if result.InitialImagePath != "" {
				result.SettleErr = err
			} else {
				result.Err = err
			}
			log.Errorf("Error capturing %s: %v", url, err)
		}
		result.Succeeded = result.InitialImagePath != "" || result.FinalImagePath != ""
	}()

	sess, err := e.Launcher.Launch(ctx, e.sessionOptions())
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrLaunch, err)
		log.Errorf("Error starting browser for %s: %v", url, err)
		return result
	}
	defer closeQuietly(sess, url)

	if err := sess.Navigate(ctx, url); err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrNavigation, err)
		log.Errorf("Error loading %s: %v", url, err)
		return result
	}

	initialPath := filepath.Join(outputDir, name+"_initial.png")
	initial, err := e.shoot(ctx, sess, url, initialPath)
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrScreenshot, err)
		log.Errorf("Error taking initial screenshot of %s: %v", url, err)
		return result
	}
	result.InitialImagePath = initialPath
	log.Infof("Initial screenshot saved: %s", initialPath)

	finalPath := filepath.Join(outputDir, name+"_final.png")
	final, err := e.settleAndShoot(ctx, sess, url, finalPath)
	if err != nil {
		result.SettleErr = fmt.Errorf("%w: %w", ErrSettle, err)
		log.Warnf("Error during scroll/final screenshot of %s: %v", url, err)
		return result
	}
	result.FinalImagePath = finalPath
	log.Infof("Final screenshot saved: %s", finalPath)

	result.Similarity = similarity(initial, final)
	if result.Similarity >= 0 {
		log.Debugf("%s: final screenshot is %d%% similar to initial", url, result.Similarity)
	}
	return result
}

func (e *Engine) sessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.BrowserPath = e.Browser.ExecutablePath
	opts.DriverPath = e.Driver.ExecutablePath
	opts.Width = e.Options.Profile.Width
	opts.Height = e.Options.Profile.Height
	opts.PageLoadTimeout = e.Options.PageLoadTimeout
	return opts
}

func (e *Engine) settleAndShoot(ctx context.Context, sess session.Session, url, path string) ([]byte, error) {
	if err := e.sleep(ctx, e.Options.SettleDelay); err != nil {
		return nil, err
	}
	if err := sess.Eval(ctx, session.ScrollToBottom, nil); err != nil {
		return nil, fmt.Errorf("scrolling to bottom: %w", err)
	}
	if err := e.sleep(ctx, e.Options.BottomDelay); err != nil {
		return nil, err
	}
	if err := sess.Eval(ctx, session.ScrollToTop, nil); err != nil {
		return nil, fmt.Errorf("scrolling to top: %w", err)
	}
	if err := e.sleep(ctx, e.Options.TopDelay); err != nil {
		return nil, err
	}
	return e.shoot(ctx, sess, url, path)
}

// shoot writes a screenshot to path and returns the raw capture.
func (e *Engine) shoot(ctx context.Context, sess session.Session, url, path string) ([]byte, error) {
	if e.Options.Profile.FullPage {
		if err := e.fitDocument(ctx, sess); err != nil {
			return nil, err
		}
	}

	img, err := sess.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, errors.New("empty screenshot")
	}

	out := img
	if e.Options.Imprint {
		if stamped, err := postprocess.AddTextToImage(img, url); err != nil {
			log.Warnf("Could not add URL to screenshot of %s: %v", url, err)
		} else {
			out = stamped
		}
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, err
	}
	return img, nil
}

// fitDocument grows the viewport to the document height, within the profile height and
// MaxFullPageHeight.
func (e *Engine) fitDocument(ctx context.Context, sess session.Session) error {
	var height int
	if err := sess.Eval(ctx, session.DocumentHeight, &height); err != nil {
		return fmt.Errorf("measuring document: %w", err)
	}
	height = max(height, e.Options.Profile.Height)
	height = min(height, MaxFullPageHeight)
	return sess.Resize(ctx, e.Options.Profile.Width, height)
}

func closeQuietly(sess session.Session, url string) {
	defer func() {
		if r := recover(); r != nil {
			log.Debugf("Closing browser for %s panicked: %v", url, r)
		}
	}()
	if err := sess.Close(); err != nil {
		log.Debugf("Error closing browser for %s: %v", url, err)
	}
}

// similarity scores two screenshots with ssdeep. Inputs too small to hash give -1.
func similarity(a, b []byte) int {
	h1, err := ssdeep.FuzzyBytes(a)
	if err != nil {
		return -1
	}
	h2, err := ssdeep.FuzzyBytes(b)
	if err != nil {
		return -1
	}
	score, err := ssdeep.Distance(h1, h2)
	if err != nil {
		return -1
	}
	return score
}
