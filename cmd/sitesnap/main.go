package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/sitesnap/pkg/batch"
	"github.com/root4loot/sitesnap/pkg/capture"
	"github.com/root4loot/sitesnap/pkg/config"
	"github.com/root4loot/sitesnap/pkg/postprocess"
	"github.com/root4loot/sitesnap/pkg/session"
)

const (
	author  = "@danielantonsen"
	version = "0.1.0"
)

func init() {
	log.Init("sitesnap")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:])
	case "process":
		return processCommand(args[1:])
	case "version", "-version", "--version":
		fmt.Println("sitesnap", version, "by", author)
		return 0
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	}

	fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", args[0], usage)
	return 1
}

func runCommand(args []string) int {
	opts, err := parseRunFlags(args)
	if err != nil {
		if errors.Is(err, errHelp) {
			fmt.Print(usage)
			return 0
		}
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		return 1
	}

	cfg, err := opts.config()
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	setLogLevel(cfg)

	captureOpts, err := cfg.CaptureOptions()
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	launcher, err := session.New(cfg.Backend)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	runner := batch.NewRunner(cfg.Manager(), launcher, captureOpts)
	runner.OutputBase = cfg.OutputDir()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan batch.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			renderEvent(ev)
		}
	}()

	summary, err := runner.RunStream(ctx, opts.Infile, events)
	<-done

	switch {
	case errors.Is(err, batch.ErrInterrupted):
		log.Warnf("Interrupted: summary written to %s", summary.Dir)
		return 130
	case err != nil:
		log.Errorf("%v", err)
		return 1
	}

	if cfg.PostProcess.Enabled {
		if _, err := postprocess.Process(summary.Dir, cfg.PostProcessOptions()); err != nil {
			log.Errorf("Post-processing failed: %v", err)
		}
	}
	return 0
}

func processCommand(args []string) int {
	opts, err := parseProcessFlags(args)
	if err != nil {
		if errors.Is(err, errHelp) {
			fmt.Print(usage)
			return 0
		}
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		return 1
	}

	cfg, err := opts.config()
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	setLogLevel(cfg)

	dir := opts.Dir
	if dir == "" {
		log.Infof("Looking for the most recent screenshot directory...")
		bases := capture.OutputSubdirs()
		if cfg.OutputBase != "" {
			bases = append([]string{cfg.OutputBase}, bases...)
		}
		if dir, err = postprocess.LatestRun(bases...); err != nil {
			log.Errorf("%v. Please specify a directory.", err)
			return 1
		}
		log.Infof("Using %s", dir)
	}

	if _, err := postprocess.Process(dir, cfg.PostProcessOptions()); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}

func renderEvent(ev batch.Event) {
	switch ev.Kind {
	case batch.EventStart:
		log.Debugf("Capturing %d URLs into %s", ev.Total, ev.Dir)
	case batch.EventURLDone:
		r := ev.Result
		switch {
		case !r.Succeeded:
			log.Resultf("[%d/%d] %s failed: %v", ev.Index+1, ev.Total, r.URL, r.Err)
		case r.SettleErr != nil:
			log.Resultf("[%d/%d] %s partial: %s", ev.Index+1, ev.Total, r.URL, r.InitialImagePath)
		default:
			log.Resultf("[%d/%d] %s ok: %s", ev.Index+1, ev.Total, r.URL, r.FinalImagePath)
		}
	case batch.EventFinish:
		s := ev.Summary
		log.Resultf("%d of %d URLs captured, summary in %s", s.Successful, s.Total, s.Dir)
	}
}

func setLogLevel(cfg *config.Config) {
	switch {
	case cfg.Log.Silence:
		log.SetLevel(log.FatalLevel)
	case cfg.Log.Debug:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
