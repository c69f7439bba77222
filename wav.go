package main

import (
	"context"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const wavBitDepth = 16

// renderWav writes cfg.Duration of output to cfg.Output as 16 bit PCM.
// It returns the number of frames written.
func renderWav(ctx context.Context, fs afero.Fs, r *renderer, cfg config, log *zap.SugaredLogger) (int, error) {
	f, err := fs.Create(cfg.Output)
	if err != nil {
		return 0, errors.Wrap(err, "wav")
	}
	defer f.Close()

	enc := wav.NewEncoder(f, cfg.SampleRate, wavBitDepth, cfg.Channels, 1)
	total := int(cfg.Duration.Seconds() * float64(cfg.SampleRate))
	out := make([][]float32, cfg.Channels)
	for c := range out {
		out[c] = make([]float32, cfg.BufferFrames)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: cfg.Channels,
			SampleRate:  cfg.SampleRate,
		},
		Data:           make([]int, cfg.BufferFrames*cfg.Channels),
		SourceBitDepth: wavBitDepth,
	}
	const scale = 1<<(wavBitDepth-1) - 1

	written := 0
	for written < total {
		if err := ctx.Err(); err != nil {
			enc.Close()
			return written, errors.Wrap(err, "wav render interrupted")
		}
		n := min(cfg.BufferFrames, total-written)
		block := out
		if n < cfg.BufferFrames {
			block = make([][]float32, cfg.Channels)
			for c := range block {
				block[c] = out[c][:n]
			}
		}
		r.RenderBlock(block)
		buf.Data = buf.Data[:n*cfg.Channels]
		for i := 0; i < n; i++ {
			for c := range block {
				buf.Data[i*cfg.Channels+c] = int(block[c][i] * scale)
			}
		}
		if err := enc.Write(buf); err != nil {
			return written, errors.Wrap(err, "wav write")
		}
		written += n
	}
	if err := enc.Close(); err != nil {
		return written, errors.Wrap(err, "wav close")
	}
	log.Infow("rendered", "file", cfg.Output, "frames", written, "seconds", cfg.Duration.Seconds())
	return written, nil
}
