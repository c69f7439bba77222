package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// reloader recompiles the source file whenever it changes on disk
type reloader struct {
	fs       afero.Fs
	path     string
	interval time.Duration
	engine   *engine
	log      *zap.SugaredLogger

	modTime time.Time
	size    int64
}

// Check loads the file if its modification time or size changed since the last
// look. It reports whether a load was attempted; a compile error is returned
// and the running program is kept.
func (r *reloader) Check() (bool, error) {
	fi, err := r.fs.Stat(r.path)
	if err != nil {
		return false, errors.Wrapf(err, "cannot stat %s", r.path)
	}
	if fi.ModTime().Equal(r.modTime) && fi.Size() == r.size {
		return false, nil
	}
	r.modTime, r.size = fi.ModTime(), fi.Size()
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		return true, errors.Wrapf(err, "cannot read %s", r.path)
	}
	source := strings.TrimSpace(string(data))
	if _, err := r.engine.Install(source); err != nil {
		return true, err
	}
	if r.engine.Name() == "" {
		r.engine.SetName(strings.TrimSuffix(filepath.Base(r.path), filepath.Ext(r.path)))
	}
	r.log.Infow("loaded", "file", r.path)
	return true, nil
}

// Run polls until ctx is done. Errors are logged, never fatal.
func (r *reloader) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := r.Check(); err != nil {
				r.log.Warnw("reload failed", "file", r.path, "error", err)
			}
		}
	}
}
