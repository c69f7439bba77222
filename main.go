/*
	evaluator plays integer expressions as audio.

	Each output frame runs the current program once; t counts frames, and
	the value left in each channel is taken modulo 1<<bit_depth and mapped
	onto the output range. Type a new expression at the prompt and it
	replaces the running one at the next audio block without a gap. A
	program that fails to compile leaves the running one playing.

	    evaluator 't*(t>>8&t>>4)'
	    evaluator --backend wav --output out.wav --duration 30s 't*3'
	    evaluator --source tune.txt --watch a,b
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const advisory = `
Protect your hearing when listening to any audio on a system capable of
more than 85dB SPL. Integer expressions jump between extremes without
warning; start with the volume low.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fl := newFlagSet()
	if err := fl.Parse(args); err != nil {
		return err
	}
	fs := afero.NewOsFs()
	cfg, err := loadConfig(fs, fl)
	if err != nil {
		return err
	}
	logger, log := setupLogger(cfg.LogLevel, os.Stderr)
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(cfg, fs, log, out)
	if err != nil {
		return err
	}
	if err := a.load(strings.Join(fl.Args(), " ")); err != nil {
		return err
	}
	if cfg.Backend == "wav" {
		_, err := renderWav(ctx, fs, a.render, cfg, log)
		return err
	}
	fmt.Fprint(out, advisory)
	return a.live(ctx, in, playPortaudio)
}

// app wires the parts together
type app struct {
	cfg     config
	fs      afero.Fs
	log     *zap.SugaredLogger
	out     io.Writer
	metrics *metrics
	engine  *engine
	watches *watchSet
	render  *renderer
	monitor *monitor
	console *console
	reload  *reloader // nil without a source file
}

func newApp(cfg config, fs afero.Fs, log *zap.SugaredLogger, out io.Writer) (*app, error) {
	ws, err := newWatchSet(cfg.Watches)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, fs: fs, log: log, out: out, watches: ws, metrics: newMetrics()}
	a.engine = newEngine(cfg.MaxDepth, log, a.metrics)
	a.render = newRenderer(cfg, a.engine, ws)
	a.monitor = newMonitor(cfg, a.engine, a.render, a.metrics, fs, log)
	a.console = &console{engine: a.engine, render: a.render, watches: ws, out: out, log: log}
	if cfg.Source != "" {
		a.reload = &reloader{fs: fs, path: cfg.Source, interval: cfg.Poll, engine: a.engine, log: log}
	}
	return a, nil
}

// load installs the first program, from the command line if given, else from the source file
func (a *app) load(expr string) error {
	if expr != "" {
		if _, err := a.engine.Install(expr); err != nil {
			return errors.Errorf("%s", describeCompileError(expr, err))
		}
		return nil
	}
	if a.reload == nil {
		if a.cfg.Backend == "wav" {
			return errors.New("nothing to render: give an expression or --source")
		}
		return nil
	}
	if _, err := a.reload.Check(); err != nil {
		return errors.Wrap(err, "source")
	}
	return nil
}

// player streams the renderer until ctx is done
type player func(ctx context.Context, r *renderer, cfg config, info func(string), log *zap.SugaredLogger) error

// live runs audio with the console, reloader, info display and metrics until
// :exit, a fatal error, or ctx is done
func (a *app) live(ctx context.Context, in io.Reader, play player) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		a.monitor.SetOn(true)
		defer a.monitor.SetOn(false)
		return play(ctx, a.render, a.cfg, a.monitor.Info, a.log)
	})
	g.Go(func() error {
		return a.monitor.Run(ctx)
	})
	g.Go(func() error {
		err := a.console.Run(ctx, in)
		// with a watched source file, end of input just means nobody is typing
		if errors.Is(err, errExit) || a.reload == nil {
			cancel()
			return nil
		}
		return err
	})
	if a.reload != nil {
		g.Go(func() error {
			return a.reload.Run(ctx)
		})
	}
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return a.metrics.serve(ctx, a.cfg.MetricsAddr, a.log)
		})
	}
	return g.Wait()
}
