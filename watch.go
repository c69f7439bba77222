package main

import (
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"evaluator/program"
)

const maxWatches = 16

// watch names a memory cell shown in the info display
type watch struct {
	Label   string
	Address program.Value
}

// parseWatch accepts a variable letter or a decimal address
func parseWatch(s string) (watch, error) {
	if len(s) == 1 && (s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z' || s[0] == '~') {
		return watch{Label: s, Address: program.Value(s[0]) + program.VarOffset}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return watch{}, errors.Errorf("cannot watch %q: not a variable or address", s)
	}
	return watch{Label: "@" + s, Address: n}, nil
}

// watchSet is replaced wholesale so the render path can read it without locking
type watchSet struct {
	list atomic.Pointer[[]watch]
}

func newWatchSet(labels []string) (*watchSet, error) {
	ws := &watchSet{}
	ws.list.Store(&[]watch{})
	for _, l := range labels {
		w, err := parseWatch(l)
		if err != nil {
			return nil, err
		}
		if err := ws.Add(w); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func (ws *watchSet) List() []watch {
	return *ws.list.Load()
}

// Add appends watches not already present. Only the control path calls it.
func (ws *watchSet) Add(add ...watch) error {
	old := ws.List()
	l := make([]watch, len(old), len(old)+len(add))
	copy(l, old)
next:
	for _, w := range add {
		for _, have := range l {
			if have.Address == w.Address {
				continue next
			}
		}
		if len(l) == maxWatches {
			return errors.Errorf("at most %d watches", maxWatches)
		}
		l = append(l, w)
	}
	ws.list.Store(&l)
	return nil
}

func (ws *watchSet) Clear() {
	ws.list.Store(&[]watch{})
}

// watchSnapshot is a copy of watched cells taken at the end of a block
type watchSnapshot struct {
	Watches []watch // the set in force when the copy was taken
	Values  [maxWatches]program.Value
}
