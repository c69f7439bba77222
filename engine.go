package main

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"evaluator/program"
)

// engine holds the program the render path runs. Programs are compiled on the
// control path and handed over with a single atomic store; the render path
// picks the new one up at its next block and the old one is left to the GC.
type engine struct {
	current    atomic.Pointer[program.Program]
	generation atomic.Uint64
	name       atomic.String
	source     atomic.String
	lastErr    atomic.Error

	opts    program.CompileOptions
	log     *zap.SugaredLogger
	metrics *metrics
}

func newEngine(maxDepth int, log *zap.SugaredLogger, m *metrics) *engine {
	return &engine{
		opts:    program.CompileOptions{MaxDepth: maxDepth},
		log:     log,
		metrics: m,
	}
}

// Install compiles source and on success makes it the running program.
// A failed compile leaves the running program alone and returns a *program.CompileErr.
func (e *engine) Install(source string) (*program.Program, error) {
	p, err := program.CompileWith(source, e.opts)
	e.metrics.compiled(err)
	e.lastErr.Store(err)
	if err != nil {
		e.log.Debugw("compile failed", "error", err, "source", source)
		return nil, err
	}
	e.current.Store(p)
	e.source.Store(source)
	gen := e.generation.Inc()
	e.metrics.instructions.Set(float64(p.InstructionCount()))
	e.log.Debugw("installed", "generation", gen, "instructions", p.InstructionCount())
	return p, nil
}

// Program is the running program, nil until the first successful Install.
func (e *engine) Program() *program.Program {
	return e.current.Load()
}

// Generation counts successful installs.
func (e *engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *engine) SetName(name string) { e.name.Store(name) }
func (e *engine) Name() string        { return e.name.Load() }

// Source is the text of the running program.
func (e *engine) Source() string { return e.source.Load() }

// LastError is the result of the latest compile, nil if it succeeded.
func (e *engine) LastError() error { return e.lastErr.Load() }
