package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Chromedp launches the resolved browser through a chromedp exec allocator.
type Chromedp struct{}

func (Chromedp) Name() string { return BackendChromedp }

func (Chromedp) Launch(ctx context.Context, opts Options) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("ignore-certificate-errors", opts.IgnoreCertificateErrors),
	)
	if opts.BrowserPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BrowserPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		ctx:      browserCtx,
		cancel:   func() { cancelBrowser(); cancelAlloc() },
		pageLoad: opts.PageLoadTimeout,
	}

	// The first Run allocates the browser and binds it to browserCtx, so it must not carry a
	// shorter-lived context.
	stop := context.AfterFunc(ctx, s.cancel)
	err := chromedp.Run(browserCtx, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)))
	stop()
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	return s, nil
}

type chromedpSession struct {
	ctx      context.Context
	cancel   context.CancelFunc
	pageLoad time.Duration
}

// run executes actions on the session, bounded by timeout when positive and by ctx.
func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.pageLoad, chromedp.Navigate(url))
}

func (s *chromedpSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *chromedpSession) Eval(ctx context.Context, expr string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return s.run(ctx, 0, chromedp.Evaluate(expr, out))
}

func (s *chromedpSession) Resize(ctx context.Context, width, height int) error {
	return s.run(ctx, 0, chromedp.EmulateViewport(int64(width), int64(height)))
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	return err
}
