package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"evaluator/program"
)

type metrics struct {
	registry      *prometheus.Registry
	compiles      *prometheus.CounterVec
	runtimeErrors *prometheus.CounterVec
	instructions  prometheus.Gauge
	frames        prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluator_compiles_total",
				Help: "Compilations by result",
			},
			[]string{"result"},
		),
		runtimeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluator_runtime_errors_total",
				Help: "Frames that ended in a runtime error, by kind",
			},
			[]string{"kind"},
		),
		instructions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evaluator_instructions",
			Help: "Instruction count of the installed program",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluator_frames_total",
			Help: "Frames rendered",
		}),
	}
	m.registry.MustRegister(m.compiles, m.runtimeErrors, m.instructions, m.frames)
	// every kind is exported from the start, so rates work before the first error
	for _, kind := range program.RuntimeErrors() {
		if kind != program.NoRuntimeError {
			m.runtimeErrors.WithLabelValues(kind.String())
		}
	}
	return m
}

func (m *metrics) compiled(err error) {
	if err == nil {
		m.compiles.WithLabelValues("ok").Inc()
		return
	}
	m.compiles.WithLabelValues("error").Inc()
}

func (m *metrics) block(s blockStatus) {
	m.frames.Add(float64(s.Frames))
	for kind, n := range s.Errors {
		if n > 0 && program.RuntimeError(kind) != program.NoRuntimeError {
			m.runtimeErrors.WithLabelValues(program.RuntimeError(kind).String()).Add(float64(n))
		}
	}
}

// serve exposes the registry on addr until ctx is done
func (m *metrics) serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	h := http.NewServeMux()
	h.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Errorf("metrics shutdown: %v", err)
		}
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics")
	}
	return nil
}
