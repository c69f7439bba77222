package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"evaluator/program"
)

func TestEngineInstall(t *testing.T) {
	m := newMetrics()
	e := newEngine(0, zaptest.NewLogger(t).Sugar(), m)
	assert.Nil(t, e.Program())
	assert.Zero(t, e.Generation())

	p, err := e.Install("t*2")
	require.NoError(t, err)
	assert.Same(t, p, e.Program())
	assert.Equal(t, "t*2", e.Source())
	assert.Equal(t, uint64(1), e.Generation())
	assert.NoError(t, e.LastError())

	// a failed compile keeps the running program
	p2, err := e.Install("t*")
	assert.Nil(t, p2)
	var ce *program.CompileErr
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, program.UnexpectedChar, ce.Kind)
	assert.Same(t, p, e.Program())
	assert.Equal(t, "t*2", e.Source())
	assert.Equal(t, uint64(1), e.Generation())
	assert.Equal(t, err, e.LastError())

	e.SetName("bass")
	assert.Equal(t, "bass", e.Name())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.instructions))
}

func TestEngineMaxDepth(t *testing.T) {
	e := newEngine(3, zaptest.NewLogger(t).Sugar(), newMetrics())
	_, err := e.Install("((1))")
	require.NoError(t, err)
	_, err = e.Install("(((1)))")
	var ce *program.CompileErr
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, program.TooDeep, ce.Kind)
}

func TestMetricsRuntimeErrorKinds(t *testing.T) {
	m := newMetrics()
	assert.Equal(t, program.RuntimeErrorKinds-1, testutil.CollectAndCount(m.runtimeErrors))
	assert.Zero(t, testutil.ToFloat64(m.runtimeErrors.WithLabelValues(program.DivideByZero.String())))

	var s blockStatus
	s.Frames = 8
	s.Errors[program.DivideByZero] = 3
	s.Errors[program.NoRuntimeError] = 5
	m.block(s)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.runtimeErrors.WithLabelValues(program.DivideByZero.String())))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.frames))
	assert.Equal(t, program.RuntimeErrorKinds-1, testutil.CollectAndCount(m.runtimeErrors))
}
