package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"evaluator/program"
)

// terminal colours
const (
	reset  = "\x1b[0m"
	bold   = "\x1b[1m"
	italic = "\x1b[3m"
	red    = "\x1b[31;1m"
	green  = "\x1b[32m"
	yellow = "\x1b[33m"
	cyan   = "\x1b[36m"
)

const consoleHelp = `expression     compile and play
:name text     name the running program
:watch a 300   watch variables or addresses, no arguments lists them
:unwatch       clear all watches
:peek 300      read a memory cell
:listing       show bytecode of the running program
:source        show source of the running program
:exit          quit`

var errExit = errors.New("exit")

// console reads lines from the terminal. Plain lines are programs, lines
// starting with ':' are commands.
type console struct {
	engine  *engine
	render  *renderer
	watches *watchSet
	out     io.Writer
	log     *zap.SugaredLogger
}

// Run handles lines until :exit, end of input or ctx is done.
// It returns errExit only when the user asked to quit.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	done := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-stop:
				return
			}
		}
		done <- s.Err()
	}()
	for {
		select {
		case line := <-lines:
			if err := c.Handle(ctx, line); err != nil {
				if errors.Is(err, errExit) {
					return err
				}
				c.pf("%serror:%s %v\n", red, reset, err)
			}
		case err := <-done:
			return errors.Wrap(err, "console input")
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *console) pf(format string, a ...interface{}) {
	fmt.Fprintf(c.out, format, a...)
}

// Handle acts on one line of input
func (c *console) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, ":") {
		return c.install(line)
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		c.pf("%s\n", consoleHelp)
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "name":
		name := strings.TrimSpace(strings.TrimPrefix(line[1:], cmd))
		c.engine.SetName(name)
		c.pf("%sname:%s %s\n", italic, reset, name)
	case "watch":
		if len(args) == 0 {
			for _, w := range c.watches.List() {
				c.pf("%s\t%d\n", w.Label, w.Address)
			}
			return nil
		}
		ws := make([]watch, 0, len(args))
		for _, a := range args {
			w, err := parseWatch(a)
			if err != nil {
				return err
			}
			ws = append(ws, w)
		}
		return c.watches.Add(ws...)
	case "unwatch":
		c.watches.Clear()
	case "peek":
		if len(args) != 1 {
			return errors.New("usage: :peek address")
		}
		w, err := parseWatch(args[0])
		if err != nil {
			return err
		}
		v, err := c.render.Peek(ctx, w.Address)
		if err != nil {
			return err
		}
		c.pf("%s = %d\n", w.Label, v)
	case "listing":
		p := c.engine.Program()
		if p == nil {
			return errors.New("no program running")
		}
		for i, l := range p.Listing() {
			c.pf("%3d  %s\n", i, l)
		}
	case "source":
		c.pf("%s\n", c.engine.Source())
	case "exit", "q", "quit":
		return errExit
	case "help":
		c.pf("%s\n", consoleHelp)
	default:
		return errors.Errorf("unknown command %q, :help lists them", cmd)
	}
	return nil
}

func (c *console) install(source string) error {
	p, err := c.engine.Install(source)
	if err != nil {
		c.log.Infow("compile failed", "error", err)
		c.pf("%s\n", describeCompileError(source, err))
		return nil
	}
	c.pf("%sok%s %d instructions\n", green, reset, p.InstructionCount())
	return nil
}

// describeCompileError shows the source with a caret under the failing position
func describeCompileError(source string, err error) string {
	var ce *program.CompileErr
	if !errors.As(err, &ce) {
		return fmt.Sprintf("%s%v%s", red, err, reset)
	}
	caret := strings.Repeat(" ", min(ce.Pos, len(source))) + "^"
	return fmt.Sprintf("%s\n%s%s%s\n%s%s%s", source, yellow, caret, reset, red, ce.Kind, reset)
}
