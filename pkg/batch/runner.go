// Package batch runs the capture engine over a URL list, one URL at a time, and writes a run
// summary.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/sitesnap/pkg/capture"
	"github.com/root4loot/sitesnap/pkg/driver"
	"github.com/root4loot/sitesnap/pkg/session"
)

func init() {
	log.Init("sitesnap")
}

// DriverSource acquires the browser and driver once per run.
type DriverSource interface {
	Acquire(ctx context.Context) (*driver.Toolchain, error)
}

// Capturer captures a single URL into outputDir.
type Capturer interface {
	Capture(ctx context.Context, rawURL, outputDir string) capture.Result
}

// Runner processes URL lists.
type Runner struct {
	Drivers DriverSource
	// NewCapturer builds the capturer once the toolchain is known.
	NewCapturer func(tc *driver.Toolchain) Capturer
	// OutputBase is the directory run directories are created in.
	OutputBase string

	now func() time.Time
}

// NewRunner returns a Runner that captures with the capture engine using launcher and opts,
// writing runs under the profile's output subdirectory.
func NewRunner(drivers DriverSource, launcher session.Launcher, opts capture.Options) *Runner {
	return &Runner{
		Drivers: drivers,
		NewCapturer: func(tc *driver.Toolchain) Capturer {
			return capture.NewEngine(launcher, tc, opts)
		},
		OutputBase: opts.Profile.OutputSubdir,
		now:        time.Now,
	}
}

// Run processes the URL list at path. See RunStream.
func (r *Runner) Run(ctx context.Context, path string) (*Summary, error) {
	return r.RunStream(ctx, path, nil)
}

// RunStream processes the URL list at path and reports progress on events, which is closed
// when RunStream returns. Input and driver errors abort the run before any capture. Per-URL
// failures are only counted. When ctx is cancelled the URLs not yet captured count as failed
// and the summary is still written.
func (r *Runner) RunStream(ctx context.Context, path string, events chan<- Event) (*Summary, error) {
	if events != nil {
		defer close(events)
	}
	emit := func(ev Event) {
		if events != nil {
			events <- ev
		}
	}

	urls, err := ReadURLs(path)
	if err != nil {
		return nil, err
	}
	log.Infof("Found %d URLs to process", len(urls))

	tc, err := r.Drivers.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("Using driver at %s", tc.Driver.ExecutablePath)

	started := r.clock()
	dir, err := CreateRunDir(r.OutputBase, started)
	if err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	log.Infof("Screenshots will be saved to: %s", dir)

	summary := &Summary{
		Timestamp: started,
		Dir:       dir,
		Total:     len(urls),
		URLs:      urls,
		Warnings:  tc.Warnings,
	}
	emit(Event{Kind: EventStart, Total: len(urls), Dir: dir})

	capturer := r.NewCapturer(tc)
	for i, url := range urls {
		if ctx.Err() != nil {
			summary.Interrupted = true
			summary.Failed += len(urls) - i
			log.Warnf("Run interrupted, skipping %d remaining URLs", len(urls)-i)
			break
		}

		log.Infof("Processing: %s", url)
		emit(Event{Kind: EventURLStart, Index: i, Total: len(urls), URL: url})

		result := capturer.Capture(ctx, url, dir)
		if result.Succeeded {
			summary.Successful++
		} else {
			summary.Failed++
		}
		emit(Event{Kind: EventURLDone, Index: i, Total: len(urls), URL: url, Result: &result})
	}
	// A cancel during the last capture never reaches the check above.
	if ctx.Err() != nil && !summary.Interrupted {
		summary.Interrupted = true
		log.Warnf("Run interrupted during the last URL")
	}

	log.Infof("Finished processing all URLs")
	log.Infof("Results: %d successful, %d failed", summary.Successful, summary.Failed)
	log.Infof("Screenshots saved in: %s", dir)

	_, writeErr := summary.Write(dir)
	emit(Event{Kind: EventFinish, Total: len(urls), Dir: dir, Summary: summary})
	if writeErr != nil {
		return summary, fmt.Errorf("writing summary: %w", writeErr)
	}
	if summary.Interrupted {
		return summary, errors.Join(ErrInterrupted, ctx.Err())
	}
	return summary, nil
}

func (r *Runner) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}
