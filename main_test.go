package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() config {
	cfg := defaultConfig()
	cfg.InfoFile = ""
	return cfg
}

func newTestApp(t *testing.T, cfg config) (*app, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	a, err := newApp(cfg, afero.NewMemMapFs(), zaptest.NewLogger(t).Sugar(), out)
	require.NoError(t, err)
	return a, out
}

func blocks(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	return out
}

// fakePlayer renders small blocks until ctx is done, closing started after a few
func fakePlayer(started chan struct{}) player {
	return func(ctx context.Context, r *renderer, cfg config, info func(string), log *zap.SugaredLogger) error {
		info("fake device")
		out := blocks(cfg.Channels, 64)
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			r.RenderBlock(out)
			if i == 10 {
				close(started)
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func TestLiveUntilExit(t *testing.T) {
	cfg := testConfig()
	cfg.InfoFile = "info.json"
	cfg.Watches = []string{"a"}
	a, _ := newTestApp(t, cfg)
	require.NoError(t, a.load("a=a+1;t"))

	started := make(chan struct{})
	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- a.live(context.Background(), pr, fakePlayer(started))
	}()
	<-started
	_, err := pw.Write([]byte(":exit\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, <-errc)

	data, err := afero.ReadFile(a.fs, "info.json")
	require.NoError(t, err)
	var d disp
	require.NoError(t, json.Unmarshal(data, &d))
	assert.False(t, d.On)
	assert.Equal(t, "a=a+1;t", d.Source)
	assert.Equal(t, uint64(1), d.Generation)
	assert.Equal(t, "None", d.Compile)
	assert.Greater(t, d.Frames, uint64(0))
	if assert.Len(t, d.Watches, 1) {
		assert.Equal(t, "a", d.Watches[0].Label)
		assert.Greater(t, d.Watches[0].Value, int64(0))
	}
	assert.Contains(t, d.Info, "closed")
}

func TestLivePlayerError(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	pr, pw := io.Pipe()
	defer pw.Close()
	fail := func(ctx context.Context, r *renderer, cfg config, info func(string), log *zap.SugaredLogger) error {
		return errors.New("no device")
	}
	err := a.live(context.Background(), pr, fail)
	assert.EqualError(t, err, "no device")
}

func TestLoad(t *testing.T) {
	a, _ := newTestApp(t, testConfig())
	require.NoError(t, a.load(""))
	assert.Nil(t, a.engine.Program())

	err := a.load("1+")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected character")

	require.NoError(t, a.load("t>>4"))
	assert.Equal(t, "t>>4", a.engine.Source())

	cfg := testConfig()
	cfg.Backend = "wav"
	a, _ = newTestApp(t, cfg)
	assert.Error(t, a.load(""))

	cfg.Source = "tune.txt"
	a, _ = newTestApp(t, cfg)
	require.NoError(t, afero.WriteFile(a.fs, "tune.txt", []byte("t&t>>8\n"), 0644))
	require.NoError(t, a.load(""))
	assert.Equal(t, "t&t>>8", a.engine.Source())
	assert.Equal(t, "tune", a.engine.Name())
}

func TestRunArgumentErrors(t *testing.T) {
	err := run(context.Background(), []string{"--bogus"}, strings.NewReader(""), io.Discard)
	assert.Error(t, err)
	err = run(context.Background(), []string{"--config", "does-not-exist.toml"}, strings.NewReader(""), io.Discard)
	assert.Error(t, err)
}
