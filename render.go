package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"evaluator/program"
)

// blockStatus accumulates run results on the render path until the control
// path takes them
type blockStatus struct {
	Frames uint64
	Last   program.RuntimeError // most recent error, if any
	Errors [program.RuntimeErrorKinds]uint32
}

type peekReply struct {
	Address, Value program.Value
}

// renderer runs the installed program once per frame. RenderBlock is the only
// method the audio path calls; it never allocates, locks or blocks.
type renderer struct {
	engine    *engine
	watches   *watchSet
	rate      program.Value
	res       program.Value
	volume    float32
	resetTime bool

	prog   *program.Program
	t      program.Value
	frame  []program.Value
	status blockStatus

	statuses    chan blockStatus
	snapshots   chan watchSnapshot
	peeks       chan program.Value
	peekReplies chan peekReply
}

func newRenderer(cfg config, e *engine, ws *watchSet) *renderer {
	return &renderer{
		engine:      e,
		watches:     ws,
		rate:        program.Value(cfg.SampleRate),
		res:         cfg.resolution(),
		volume:      float32(cfg.Volume),
		resetTime:   cfg.ResetTime,
		frame:       make([]program.Value, cfg.Channels),
		statuses:    make(chan blockStatus, 1),
		snapshots:   make(chan watchSnapshot, 1),
		peeks:       make(chan program.Value, 1),
		peekReplies: make(chan peekReply, 1),
	}
}

// RenderBlock fills non-interleaved out, one slice per channel, all the same length.
// Channels beyond the configured count are silent.
func (r *renderer) RenderBlock(out [][]float32) {
	p := r.engine.Program()
	if p != r.prog {
		r.prog = p
		for i := range r.frame {
			r.frame[i] = 0
		}
		if r.resetTime {
			r.t = 0
		}
	}
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	if p == nil {
		for _, o := range out {
			clear(o)
		}
		return
	}

	n := min(len(out), len(r.frame))
	for i := 0; i < frames; i++ {
		p.Set(program.Time, r.t)
		p.Set(program.Resolution, r.res)
		p.Set(program.SampleRate, r.rate)
		rr := p.Run(r.frame)
		r.status.Errors[rr]++
		if rr != program.NoRuntimeError {
			r.status.Last = rr
		}
		for c := 0; c < n; c++ {
			out[c][i] = r.sample(r.frame[c])
		}
		for c := n; c < len(out); c++ {
			out[c][i] = 0
		}
		r.t++
	}
	r.status.Frames += uint64(frames)
	r.publish(p)
}

// sample maps v mod r onto -1..1, scaled by volume
func (r *renderer) sample(v program.Value) float32 {
	m := v % r.res
	if m < 0 {
		m += r.res
	}
	return (float32(m)/float32(r.res)*2 - 1) * r.volume
}

// publish offers status and watch values to the control path, dropping them if it is busy
func (r *renderer) publish(p *program.Program) {
	select {
	case r.statuses <- r.status:
		r.status = blockStatus{}
	default:
	}

	ws := r.watches.List()
	if len(ws) > 0 {
		s := watchSnapshot{Watches: ws}
		for i, w := range ws {
			s.Values[i] = p.PeekForDisplay(w.Address)
		}
		select {
		case r.snapshots <- s:
		default:
		}
	}

	select {
	case a := <-r.peeks:
		select {
		case r.peekReplies <- peekReply{a, p.PeekForDisplay(a)}:
		default:
		}
	default:
	}
}

// Peek asks the render path for a memory cell and waits for the answer.
// It fails if audio is not running.
func (r *renderer) Peek(ctx context.Context, address program.Value) (program.Value, error) {
	// a reply that arrived after an earlier peek timed out would block this one
	select {
	case <-r.peekReplies:
	default:
	}
	select {
	case r.peeks <- address:
	default:
		return 0, errors.New("a peek is already pending")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	for {
		select {
		case reply := <-r.peekReplies:
			if reply.Address == address {
				return reply.Value, nil
			}
		case <-ctx.Done():
			// withdraw the request if the render path never took it
			select {
			case <-r.peeks:
			default:
			}
			return 0, errors.Wrap(ctx.Err(), "no reply from audio")
		}
	}
}
