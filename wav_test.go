package main

import (
	"context"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRenderWav(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "wav"
	cfg.SampleRate = 8000
	cfg.Duration = 100 * time.Millisecond
	cfg.Output = "out.wav"
	a, _ := newTestApp(t, cfg)
	require.NoError(t, a.load("[0]=0;[1]=128"))

	frames, err := renderWav(context.Background(), a.fs, a.render, cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, 800, frames)

	f, err := a.fs.Open("out.wav")
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), d.SampleRate)
	assert.Equal(t, uint16(2), d.NumChans)
	assert.Equal(t, uint16(16), d.BitDepth)
	require.Len(t, buf.Data, 1600)
	assert.Equal(t, -16383, buf.Data[0])
	assert.Equal(t, 0, buf.Data[1])
	assert.Equal(t, -16383, buf.Data[1598])
}

func TestRenderWavCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Output = "out.wav"
	a, _ := newTestApp(t, cfg)
	require.NoError(t, a.load("t"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames, err := renderWav(ctx, a.fs, a.render, cfg, zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
	assert.Zero(t, frames)
}
