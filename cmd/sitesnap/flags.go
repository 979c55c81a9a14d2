package main

import (
	"errors"
	"flag"
	"io"

	"github.com/root4loot/sitesnap/pkg/config"
)

const usage = `USAGE:
  sitesnap run [options] <url-list-file>
  sitesnap process [options] [screenshot-dir]
  sitesnap version

RUN:
  -p,   --profile                capture profile: regular, widescreen, fourbythree, full (Default: regular)
  -b,   --backend                session backend: webdriver, rod, chromedp               (Default: webdriver)
  -o,   --outbase                directory for run folders                               (Default: per profile)
  -d,   --driver-dir             driver install directory                                (Default: drivers)
        --chrome                 browser executable, skips discovery
        --channel                driver release channel                                  (Default: Stable)
        --imprint                print the URL below each screenshot                     (Default: false)
        --post                   resize and convert screenshots after the run            (Default: false)

PROCESS:
        --resize-width           resize width in pixels                                  (Default: 800)
        --no-resize              do not write resized copies
        --no-webp                do not write WebP copies
        --quality                WebP quality (1-100)                                    (Default: 90)

COMMON:
        --config                 YAML config file
        --debug                  enable debug mode
  -s,   --silence                silence output
`

var errHelp = errors.New("help requested")

// runOptions holds the command line of "sitesnap run".
type runOptions struct {
	commonOptions
	Infile    string
	Profile   string
	Backend   string
	OutBase   string
	DriverDir string
	Chrome    string
	Channel   string
	Imprint   bool
	Post      bool
}

// processOptions holds the command line of "sitesnap process".
type processOptions struct {
	commonOptions
	Dir string
}

type commonOptions struct {
	ConfigFile  string
	Debug       bool
	Silence     bool
	ResizeWidth int
	NoResize    bool
	NoWebP      bool
	Quality     float64

	set map[string]bool
}

func (c *commonOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "")
	fs.BoolVar(&c.Debug, "debug", false, "")
	fs.BoolVar(&c.Silence, "silence", false, "")
	fs.BoolVar(&c.Silence, "s", false, "")
	fs.IntVar(&c.ResizeWidth, "resize-width", 0, "")
	fs.BoolVar(&c.NoResize, "no-resize", false, "")
	fs.BoolVar(&c.NoWebP, "no-webp", false, "")
	fs.Float64Var(&c.Quality, "quality", 0, "")
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}

func parse(fs *flag.FlagSet, args []string, c *commonOptions) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	c.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	return nil
}

func (c *commonOptions) isSet(names ...string) bool {
	for _, n := range names {
		if c.set[n] {
			return true
		}
	}
	return false
}

func parseRunFlags(args []string) (*runOptions, error) {
	opts := &runOptions{}
	fs := newFlagSet("run")
	opts.register(fs)

	fs.StringVar(&opts.Profile, "profile", "", "")
	fs.StringVar(&opts.Profile, "p", "", "")
	fs.StringVar(&opts.Backend, "backend", "", "")
	fs.StringVar(&opts.Backend, "b", "", "")
	fs.StringVar(&opts.OutBase, "outbase", "", "")
	fs.StringVar(&opts.OutBase, "o", "", "")
	fs.StringVar(&opts.DriverDir, "driver-dir", "", "")
	fs.StringVar(&opts.DriverDir, "d", "", "")
	fs.StringVar(&opts.Chrome, "chrome", "", "")
	fs.StringVar(&opts.Channel, "channel", "", "")
	fs.BoolVar(&opts.Imprint, "imprint", false, "")
	fs.BoolVar(&opts.Post, "post", false, "")

	if err := parse(fs, args, &opts.commonOptions); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, errors.New("expected exactly one URL list file")
	}
	opts.Infile = fs.Arg(0)
	return opts, nil
}

func parseProcessFlags(args []string) (*processOptions, error) {
	opts := &processOptions{}
	fs := newFlagSet("process")
	opts.register(fs)

	if err := parse(fs, args, &opts.commonOptions); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, errors.New("expected at most one screenshot directory")
	}
	opts.Dir = fs.Arg(0)
	return opts, nil
}

// apply loads the config file and environment and overlays the flags that were given.
func (c *commonOptions) apply() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}
	if c.isSet("debug") {
		cfg.Log.Debug = c.Debug
	}
	if c.isSet("silence", "s") {
		cfg.Log.Silence = c.Silence
	}
	if c.isSet("resize-width") {
		cfg.PostProcess.ResizeWidth = c.ResizeWidth
	}
	if c.isSet("no-resize") {
		cfg.PostProcess.Resize = !c.NoResize
	}
	if c.isSet("no-webp") {
		cfg.PostProcess.WebP = !c.NoWebP
	}
	if c.isSet("quality") {
		cfg.PostProcess.Quality = float32(c.Quality)
	}
	return cfg, nil
}

func (o *runOptions) config() (*config.Config, error) {
	cfg, err := o.apply()
	if err != nil {
		return nil, err
	}
	if o.isSet("profile", "p") {
		cfg.Profile = o.Profile
	}
	if o.isSet("backend", "b") {
		cfg.Backend = o.Backend
	}
	if o.isSet("outbase", "o") {
		cfg.OutputBase = o.OutBase
	}
	if o.isSet("driver-dir", "d") {
		cfg.Driver.Dir = o.DriverDir
	}
	if o.isSet("chrome") {
		cfg.Driver.BrowserPath = o.Chrome
	}
	if o.isSet("channel") {
		cfg.Driver.Channel = o.Channel
	}
	if o.isSet("imprint") {
		cfg.Capture.Imprint = o.Imprint
	}
	if o.isSet("post") {
		cfg.PostProcess.Enabled = o.Post
	}
	return cfg, cfg.Validate()
}

func (o *processOptions) config() (*config.Config, error) {
	cfg, err := o.apply()
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
