package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Rod launches the resolved browser directly through go-rod.
type Rod struct{}

func (Rod) Name() string { return BackendRod }

func (Rod) Launch(ctx context.Context, opts Options) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true)

	if opts.BrowserPath != "" {
		l = l.Bin(opts.BrowserPath)
	}

	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.Width, opts.Height))
	if opts.IgnoreCertificateErrors {
		l.Set(flags.Flag("ignore-certificate-errors"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	s := &rodSession{launcher: l, browser: browser, pageLoad: opts.PageLoadTimeout}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	s.page = page

	if err := s.Resize(ctx, opts.Width, opts.Height); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	pageLoad time.Duration
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if s.pageLoad > 0 {
		p = p.Timeout(s.pageLoad)
		defer p.CancelTimeout()
	}
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, nil)
}

func (s *rodSession) Eval(ctx context.Context, expr string, out any) error {
	res, err := s.page.Context(ctx).Eval("() => (" + expr + ")")
	if err != nil {
		return err
	}
	if out == nil || res == nil {
		return nil
	}
	return res.Value.Unmarshal(out)
}

func (s *rodSession) Resize(ctx context.Context, width, height int) error {
	return s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (s *rodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}
