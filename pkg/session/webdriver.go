package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/root4loot/goutils/log"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// WebDriver starts the provisioned chromedriver for every session and drives it through
// Selenium's WebDriver client.
type WebDriver struct{}

// NewWebDriver returns the webdriver launcher.
func NewWebDriver() *WebDriver {
	return &WebDriver{}
}

func (w *WebDriver) Name() string { return BackendWebDriver }

// Launch starts chromedriver on a free local port and opens a browser session on it. The driver
// process tree is killed as soon as ctx ends.
func (w *WebDriver) Launch(ctx context.Context, opts Options) (Session, error) {
	if opts.DriverPath == "" {
		return nil, errors.New("webdriver backend needs a driver path")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("allocating driver port: %w", err)
	}

	service, err := selenium.NewChromeDriverService(opts.DriverPath, port, selenium.Output(io.Discard))
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", opts.DriverPath, err)
	}
	driver := driverProcess(port)
	if driver != nil {
		log.Debugf("Started driver pid %d on port %d", driver.Pid, port)
	}

	s, err := newWebDriverSession(fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port), opts)
	if err != nil {
		stopService(service, driver)
		return nil, err
	}
	s.service = service
	s.driver = driver
	s.stopWatch = context.AfterFunc(ctx, s.abort)
	return s, nil
}

func newWebDriverSession(urlPrefix string, opts Options) (*webDriverSession, error) {
	wd, err := selenium.NewRemote(capabilities(opts), urlPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s := &webDriverSession{wd: wd}
	if opts.PageLoadTimeout > 0 {
		if err := wd.SetPageLoadTimeout(opts.PageLoadTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("setting page load timeout: %w", err)
		}
	}
	return s, nil
}

func capabilities(opts Options) selenium.Capabilities {
	caps := selenium.Capabilities{
		"browserName":         "chrome",
		"acceptInsecureCerts": opts.IgnoreCertificateErrors,
	}
	// Only the vendor-prefixed key; W3C chromedriver rejects the legacy "chromeOptions".
	caps[chrome.CapabilitiesKey] = chrome.Capabilities{
		Path: opts.BrowserPath,
		Args: opts.browserArgs(),
		W3C:  true,
	}
	return caps
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

type webDriverSession struct {
	wd        selenium.WebDriver
	service   *selenium.Service
	driver    *process.Process
	stopWatch func() bool
}

func (s *webDriverSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wd.Get(url)
}

func (s *webDriverSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.wd.Screenshot()
}

func (s *webDriverSession) Eval(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := s.wd.ExecuteScript("return ("+expr+");", nil)
	if err != nil || out == nil || v == nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *webDriverSession) Resize(ctx context.Context, width, height int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wd.ResizeWindow("", width, height)
}

// abort kills the driver tree so that a blocked client call returns.
func (s *webDriverSession) abort() {
	if s.driver == nil {
		return
	}
	if err := killTree(s.driver); err != nil {
		log.Debugf("Killing driver process tree: %v", err)
	}
}

// Close quits the browser session, stops the driver and kills whatever it left behind.
func (s *webDriverSession) Close() error {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}

	var errs []error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("quitting session: %w", err))
		}
		s.wd = nil
	}
	if s.service != nil {
		stopService(s.service, s.driver)
		s.service = nil
		s.driver = nil
	}
	return errors.Join(errs...)
}

// stopService shuts the driver down. Descendants are listed first because they are reparented
// once the driver exits.
func stopService(service *selenium.Service, driver *process.Process) {
	var leftovers []*process.Process
	if driver != nil {
		leftovers = descendants(driver)
	}
	if err := service.Stop(); err != nil {
		log.Debugf("Stopping driver: %v", err)
		if driver != nil {
			_ = killTree(driver)
		}
	}
	killRunning(leftovers)
}
