package main

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"evaluator/program"
)

const defaultConfigFile = "evaluator.toml"

// config is read from evaluator.toml, then overridden by any flag given on the command line
type config struct {
	SampleRate   int           `toml:"sample_rate"`
	Channels     int           `toml:"channels"`
	BitDepth     int           `toml:"bit_depth"` // r = 1 << bit_depth
	BufferFrames int           `toml:"buffer_frames"`
	Volume       float64       `toml:"volume"`
	Backend      string        `toml:"backend"`
	Output       string        `toml:"output"`
	Duration     time.Duration `toml:"duration"`
	Source       string        `toml:"source"`
	InfoFile     string        `toml:"info_file"`
	Watches      []string      `toml:"watches"`
	MaxDepth     int           `toml:"max_depth"`
	LogLevel     string        `toml:"log_level"`
	MetricsAddr  string        `toml:"metrics_addr"`
	ResetTime    bool          `toml:"reset_t"`
	Poll         time.Duration `toml:"poll"`
}

func defaultConfig() config {
	return config{
		SampleRate:   program.DefaultSampleRate,
		Channels:     2,
		BitDepth:     8,
		BufferFrames: 512,
		Volume:       0.5,
		Backend:      "portaudio",
		Output:       "out.wav",
		Duration:     10 * time.Second,
		InfoFile:     "infodisplay.json",
		MaxDepth:     program.DefaultMaxDepth,
		LogLevel:     "info",
		Poll:         250 * time.Millisecond,
	}
}

func (c config) resolution() program.Value {
	return program.Value(1) << c.BitDepth
}

// newFlagSet declares the command line. Defaults shown in help are the built in ones,
// only flags actually given override the config file.
func newFlagSet() *pflag.FlagSet {
	d := defaultConfig()
	fl := pflag.NewFlagSet("evaluator", pflag.ContinueOnError)
	fl.String("config", defaultConfigFile, "config file")
	fl.Int("sample-rate", d.SampleRate, "output sample rate")
	fl.Int("channels", d.Channels, "number of output channels")
	fl.Int("bit-depth", d.BitDepth, "resolution of program output in bits")
	fl.Int("buffer-frames", d.BufferFrames, "frames rendered per block")
	fl.Float64("volume", d.Volume, "output gain, 0 to 1")
	fl.String("backend", d.Backend, "portaudio or wav")
	fl.String("output", d.Output, "wav file to render to")
	fl.Duration("duration", d.Duration, "length of wav render")
	fl.String("source", d.Source, "program file to load and watch for changes")
	fl.String("info-file", d.InfoFile, "info display file, empty to disable")
	fl.StringSlice("watch", nil, "variables or addresses to watch")
	fl.Int("max-depth", d.MaxDepth, "maximum expression nesting")
	fl.String("log-level", d.LogLevel, "debug, info, warn or error")
	fl.String("metrics-addr", d.MetricsAddr, "serve prometheus metrics on this address")
	fl.Bool("reset-t", d.ResetTime, "restart t whenever a new program is installed")
	fl.Duration("poll", d.Poll, "source file poll interval")
	return fl
}

// loadConfig reads the config file named by fl, if any, and applies the flags given.
// A missing default config file is not an error.
func loadConfig(fs afero.Fs, fl *pflag.FlagSet) (config, error) {
	cfg := defaultConfig()
	path, _ := fl.GetString("config")
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config path")
	}
	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, errors.Wrapf(err, "parse error in %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return cfg, errors.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	case os.IsNotExist(err) && !fl.Changed("config"):
	default:
		return cfg, errors.Wrapf(err, "cannot read %s", path)
	}

	applyFlags(&cfg, fl)

	for _, p := range []*string{&cfg.Output, &cfg.Source, &cfg.InfoFile} {
		if *p, err = homedir.Expand(*p); err != nil {
			return cfg, errors.Wrap(err, "path")
		}
	}
	return cfg, cfg.validate()
}

func applyFlags(cfg *config, fl *pflag.FlagSet) {
	fl.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "sample-rate":
			cfg.SampleRate, _ = fl.GetInt(f.Name)
		case "channels":
			cfg.Channels, _ = fl.GetInt(f.Name)
		case "bit-depth":
			cfg.BitDepth, _ = fl.GetInt(f.Name)
		case "buffer-frames":
			cfg.BufferFrames, _ = fl.GetInt(f.Name)
		case "volume":
			cfg.Volume, _ = fl.GetFloat64(f.Name)
		case "backend":
			cfg.Backend, _ = fl.GetString(f.Name)
		case "output":
			cfg.Output, _ = fl.GetString(f.Name)
		case "duration":
			cfg.Duration, _ = fl.GetDuration(f.Name)
		case "source":
			cfg.Source, _ = fl.GetString(f.Name)
		case "info-file":
			cfg.InfoFile, _ = fl.GetString(f.Name)
		case "watch":
			cfg.Watches, _ = fl.GetStringSlice(f.Name)
		case "max-depth":
			cfg.MaxDepth, _ = fl.GetInt(f.Name)
		case "log-level":
			cfg.LogLevel, _ = fl.GetString(f.Name)
		case "metrics-addr":
			cfg.MetricsAddr, _ = fl.GetString(f.Name)
		case "reset-t":
			cfg.ResetTime, _ = fl.GetBool(f.Name)
		case "poll":
			cfg.Poll, _ = fl.GetDuration(f.Name)
		}
	})
}

func (c config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.Errorf("sample rate %d out of range", c.SampleRate)
	case c.Channels < 1 || c.Channels > 32:
		return errors.Errorf("channels %d out of range 1 to 32", c.Channels)
	case c.BitDepth < 1 || c.BitDepth > 32:
		return errors.Errorf("bit depth %d out of range 1 to 32", c.BitDepth)
	case c.BufferFrames < 1:
		return errors.Errorf("buffer frames %d out of range", c.BufferFrames)
	case c.Volume < 0 || c.Volume > 1:
		return errors.Errorf("volume %g out of range 0 to 1", c.Volume)
	case c.Backend != "portaudio" && c.Backend != "wav":
		return errors.Errorf("unknown backend %q", c.Backend)
	case c.Backend == "wav" && c.Duration <= 0:
		return errors.New("wav render needs a positive duration")
	case c.Poll <= 0:
		return errors.New("poll interval must be positive")
	case len(c.Watches) > maxWatches:
		return errors.Errorf("at most %d watches", maxWatches)
	}
	for _, w := range c.Watches {
		if _, err := parseWatch(w); err != nil {
			return err
		}
	}
	return nil
}
