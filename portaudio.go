// portaudio backend
package main

import (
	"context"
	"fmt"
	"strings"

	pa "github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// playPortaudio streams r to the default output device until ctx is done.
// info receives a short description of the device once the stream is open.
func playPortaudio(ctx context.Context, r *renderer, cfg config, info func(string), log *zap.SugaredLogger) error {
	if err := pa.Initialize(); err != nil {
		return errors.Wrap(err, "unable to setup portaudio")
	}
	defer func() {
		if err := pa.Terminate(); err != nil {
			log.Errorf("portaudio termination error: %v", err)
		}
	}()
	d, err := pa.DefaultOutputDevice()
	if err != nil {
		return errors.Wrap(err, "error opening default output via portaudio")
	}
	if d.MaxOutputChannels < cfg.Channels {
		return errors.Errorf("%s has %d output channels, %d configured", d.Name, d.MaxOutputChannels, cfg.Channels)
	}
	stream, err := pa.OpenDefaultStream(
		0, cfg.Channels,
		float64(cfg.SampleRate),
		cfg.BufferFrames,
		r.RenderBlock,
	)
	if err != nil {
		return errors.Wrap(err, "unable to open portaudio stream")
	}
	defer stream.Close()

	api, _ := pa.DefaultHostApi()
	apiName := ""
	if api != nil {
		apiName = fmt.Sprint(api.Type)
	}
	info(fmt.Sprintf("%s, %s %s, %d channels at %.f Hz",
		strings.Split(pa.VersionText(), ",")[0],
		apiName,
		d.Name,
		cfg.Channels,
		stream.Info().SampleRate,
	))

	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "unable to start portaudio stream")
	}
	log.Infow("audio started", "device", d.Name, "channels", cfg.Channels, "rate", cfg.SampleRate)
	<-ctx.Done()
	if err := stream.Stop(); err != nil {
		return errors.Wrap(err, "stopping portaudio stream")
	}
	log.Info("audio stopped")
	return nil
}
