package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"evaluator/program"
)

type watchValue struct {
	Label   string
	Address program.Value
	Value   program.Value
}

type disp struct { // indicates:
	On           bool         // audio is running
	Name         string       // name given with :name
	Source       string       // source of the running program
	Compile      string       // result of the latest compile
	CompilePos   int          // position of the compile error, -1 if none
	Runtime      string       // most recent runtime error, None once quiet
	ErrorFrames  uint64       // frames that ended in a runtime error
	Frames       uint64       // frames rendered
	Generation   uint64       // programs installed so far
	Instructions int          // instruction count of the running program
	MemorySize   int          // cells of program memory
	Watches      []watchValue // latest values of watched cells
	Listing      []string     // bytecode of the running program
	SR           int          // sample rate
	Format       int          // program output bit depth
	Channels     int          // output channels
	Info         string       // device and status messages
}

// quiet ticks before the runtime status returns to None
const runtimeTimeout = 25

// monitor is the control path end of the renderer: it collects status and watch
// values, feeds metrics and log, and keeps the info display file up to date
type monitor struct {
	engine  *engine
	render  *renderer
	metrics *metrics
	fs      afero.Fs
	file    string
	log     *zap.SugaredLogger

	mu         sync.Mutex
	disp       disp
	lastKind   program.RuntimeError
	quiet      int
	generation uint64
}

func newMonitor(cfg config, e *engine, r *renderer, m *metrics, fs afero.Fs, log *zap.SugaredLogger) *monitor {
	return &monitor{
		engine:  e,
		render:  r,
		metrics: m,
		fs:      fs,
		file:    cfg.InfoFile,
		log:     log,
		disp: disp{
			Compile:    program.ErrorString(nil),
			CompilePos: -1,
			Runtime:    program.NoRuntimeError.String(),
			MemorySize: program.MemorySize,
			SR:         cfg.SampleRate,
			Format:     cfg.BitDepth,
			Channels:   cfg.Channels,
			Info:       "clear",
		},
	}
}

// Info shows a message in the display
func (m *monitor) Info(s string) {
	m.mu.Lock()
	m.disp.Info = s
	m.mu.Unlock()
}

func (m *monitor) SetOn(on bool) {
	m.mu.Lock()
	m.disp.On = on
	m.mu.Unlock()
}

// Display returns a copy of the current display state
func (m *monitor) Display() disp {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.disp
	d.Watches = append([]watchValue(nil), m.disp.Watches...)
	return d
}

// Run updates the display every 20ms until ctx is done, then marks it closed.
func (m *monitor) Run(ctx context.Context) error {
	t := time.NewTicker(20 * time.Millisecond) // coarse loop timing
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.update()
			m.mu.Lock()
			m.disp.On = false // stops timer in info display
			m.disp.Info = italic + "closed" + reset
			m.mu.Unlock()
			return m.save()
		case <-t.C:
			m.update()
			if err := m.save(); err != nil {
				m.log.Errorw("info display not updated", "file", m.file, "error", err)
				m.file = "" // stop trying
			}
		}
	}
}

// update takes whatever the render path has offered, without waiting
func (m *monitor) update() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case s := <-m.render.statuses:
		m.metrics.block(s)
		m.disp.Frames += s.Frames
		var errs uint64
		for kind, n := range s.Errors {
			if program.RuntimeError(kind) != program.NoRuntimeError {
				errs += uint64(n)
			}
		}
		m.disp.ErrorFrames += errs
		if errs > 0 {
			m.quiet = 0
			m.disp.Runtime = s.Last.String()
			if s.Last != m.lastKind {
				m.log.Warnw("runtime error", "kind", s.Last.String(), "frames", errs)
				m.lastKind = s.Last
			}
		} else {
			m.quiet++
			if m.quiet > runtimeTimeout {
				m.disp.Runtime = program.NoRuntimeError.String()
				m.lastKind = program.NoRuntimeError
			}
		}
	default:
	}

	select {
	case s := <-m.render.snapshots:
		m.disp.Watches = m.disp.Watches[:0]
		for i, w := range s.Watches {
			m.disp.Watches = append(m.disp.Watches, watchValue{w.Label, w.Address, s.Values[i]})
		}
	default:
	}

	err := m.engine.LastError()
	m.disp.Compile = program.ErrorString(err)
	m.disp.CompilePos = -1
	var ce *program.CompileErr
	if errors.As(err, &ce) {
		m.disp.CompilePos = ce.Pos
	}
	m.disp.Name = m.engine.Name()
	if gen := m.engine.Generation(); gen != m.generation {
		m.generation = gen
		p := m.engine.Program()
		m.disp.Generation = gen
		m.disp.Source = m.engine.Source()
		m.disp.Instructions = p.InstructionCount()
		m.disp.Listing = p.Listing()
	}
}

func (m *monitor) save() error {
	if m.file == "" {
		return nil
	}
	return saveJson(m.fs, m.Display(), m.file)
}

func saveJson(fs afero.Fs, data interface{}, file string) error {
	j, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.Wrapf(err, "error encoding %s", file)
	}
	if err := afero.WriteFile(fs, file, j, 0644); err != nil {
		return errors.Wrapf(err, "error saving %s", file)
	}
	return nil
}
