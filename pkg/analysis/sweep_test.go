package analysis_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edp1096/toy-qpm/pkg/analysis"
	"github.com/edp1096/toy-qpm/pkg/qpm"
	"github.com/edp1096/toy-qpm/pkg/solver"
)

const (
	pump = 0.405
	tref = 25.0
	t0   = 35.0
)

// countingRecorder is a concurrency-safe analysis.Recorder for assertions.
type countingRecorder struct {
	mu         sync.Mutex
	inversions map[analysis.FailureKind]int
	sweeps     int
	points     int
	failures   int
	misses     uint64
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{inversions: make(map[analysis.FailureKind]int)}
}

func (r *countingRecorder) ObserveInversion(kind analysis.FailureKind, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inversions[kind]++
}

func (r *countingRecorder) ObserveSweep(points, failures int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	r.points += points
	r.failures += failures
}

func (r *countingRecorder) ObserveCache(_, misses uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses += misses
}

func degeneratePeriod(t *testing.T) float64 {
	t.Helper()
	period, err := qpm.Default().DerivePeriod(pump, 0.81, t0, tref)
	require.NoError(t, err)
	return period
}

func TestLinspace(t *testing.T) {
	temps, err := analysis.Linspace(20, 120, 101)
	require.NoError(t, err)
	require.Len(t, temps, 101)
	assert.Equal(t, 20.0, temps[0])
	assert.Equal(t, 120.0, temps[100])
	for i := 1; i < len(temps); i++ {
		assert.InDelta(t, 1.0, temps[i]-temps[i-1], 1e-9)
	}

	_, err = analysis.Linspace(20, 120, 1)
	assert.ErrorIs(t, err, analysis.ErrTooFewPoints)
}

// TestGenerate_OrderPreservedWithGaps sweeps across the poling temperature:
// below it there is no root, above it the pair tunes. Every input temperature
// keeps its slot.
func TestGenerate_OrderPreservedWithGaps(t *testing.T) {
	temps, err := analysis.Linspace(20, 120, 51)
	require.NoError(t, err)

	curve, err := analysis.Generate(context.Background(), temps, degeneratePeriod(t), pump, tref, analysis.WithWorkers(8))
	require.NoError(t, err)
	require.Len(t, curve, len(temps))
	assert.Equal(t, temps, curve.Temperatures())

	for _, p := range curve {
		switch {
		case p.Temperature < t0:
			assert.False(t, p.Valid, "T=%g", p.Temperature)
			assert.True(t, math.IsNaN(p.Signal), "T=%g", p.Temperature)
			assert.True(t, math.IsNaN(p.Idler), "T=%g", p.Temperature)
			assert.Equal(t, analysis.FailureConvergence, p.Failure, "T=%g", p.Temperature)
		case p.Temperature >= 40:
			assert.True(t, p.Valid, "T=%g", p.Temperature)
			assert.Equal(t, analysis.FailureNone, p.Failure)
			assert.InDelta(t, 1/pump, 1/p.Signal+1/p.Idler, 1e-12)
		}
	}
	assert.GreaterOrEqual(t, curve.Failures(), 8)
}

// TestGenerate_FailureIsolation injects a temperature with no root into an
// otherwise valid sweep. The other points must not change.
func TestGenerate_FailureIsolation(t *testing.T) {
	period := degeneratePeriod(t)

	clean, err := analysis.Generate(context.Background(), []float64{40, 50, 60, 80}, period, pump, tref)
	require.NoError(t, err)

	injected, err := analysis.Generate(context.Background(), []float64{40, 20, 50, 60, 80}, period, pump, tref)
	require.NoError(t, err)
	require.Len(t, injected, 5)

	assert.False(t, injected[1].Valid)
	assert.Equal(t, 20.0, injected[1].Temperature)

	without := append(analysis.TuningCurve{injected[0]}, injected[2:]...)
	if diff := cmp.Diff(clean, without, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("failure leaked into neighbouring points (-clean +injected):\n%s", diff)
	}
}

func TestGenerate_SequentialMatchesParallel(t *testing.T) {
	temps, err := analysis.Linspace(30, 120, 46)
	require.NoError(t, err)
	period := degeneratePeriod(t)

	seq, err := analysis.Generate(context.Background(), temps, period, pump, tref, analysis.WithWorkers(1))
	require.NoError(t, err)
	par, err := analysis.Generate(context.Background(), temps, period, pump, tref, analysis.WithWorkers(16))
	require.NoError(t, err)

	if diff := cmp.Diff(seq, par, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("parallel sweep differs (-seq +par):\n%s", diff)
	}
}

// TestGenerate_RefinementStaysSmooth checks that a finer grid over a valid
// range never jumps more than the coarse grid does.
func TestGenerate_RefinementStaysSmooth(t *testing.T) {
	period := degeneratePeriod(t)

	maxStep := func(n int) float64 {
		temps, err := analysis.Linspace(40, 120, n)
		require.NoError(t, err)
		curve, err := analysis.Generate(context.Background(), temps, period, pump, tref)
		require.NoError(t, err)
		require.Zero(t, curve.Failures())

		worst := 0.0
		for i := 1; i < len(curve); i++ {
			worst = math.Max(worst, math.Abs(curve[i].Idler-curve[i-1].Idler))
			worst = math.Max(worst, math.Abs(curve[i].Signal-curve[i-1].Signal))
		}
		return worst
	}

	coarse := maxStep(9)
	fine := maxStep(81)
	assert.Greater(t, coarse, 0.0)
	assert.LessOrEqual(t, fine, coarse)
}

func TestGenerate_Empty(t *testing.T) {
	curve, err := analysis.Generate(context.Background(), nil, 3.4, pump, tref)
	require.NoError(t, err)
	assert.Empty(t, curve)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	temps, err := analysis.Linspace(40, 120, 50)
	require.NoError(t, err)

	curve, err := analysis.Generate(ctx, temps, degeneratePeriod(t), pump, tref)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, curve)
}

func TestGenerate_CoupledMethod(t *testing.T) {
	period := degeneratePeriod(t)
	temps := []float64{40, 60, 80}

	newton, err := analysis.Generate(context.Background(), temps, period, pump, tref)
	require.NoError(t, err)
	coupled, err := analysis.Generate(context.Background(), temps, period, pump, tref,
		analysis.WithSolver(solver.MethodCoupled, solver.DefaultSettings()))
	require.NoError(t, err)

	if diff := cmp.Diff(newton, coupled, cmpopts.EquateApprox(0, 1e-7)); diff != "" {
		t.Errorf("coupled solver disagrees (-newton +coupled):\n%s", diff)
	}
}

// TestGenerate_CoupledSweep runs the coupled solver over a full grid. Each
// point reuses its Jacobian system across many Newton passes.
func TestGenerate_CoupledSweep(t *testing.T) {
	temps, err := analysis.Linspace(20, 120, 21)
	require.NoError(t, err)
	period := degeneratePeriod(t)

	newton, err := analysis.Generate(context.Background(), temps, period, pump, tref, analysis.WithWorkers(4))
	require.NoError(t, err)
	coupled, err := analysis.Generate(context.Background(), temps, period, pump, tref,
		analysis.WithWorkers(4), analysis.WithSolver(solver.MethodCoupled, solver.DefaultSettings()))
	require.NoError(t, err)
	require.Len(t, coupled, len(temps))
	assert.Equal(t, temps, coupled.Temperatures())

	for i, p := range coupled {
		switch {
		case p.Temperature < t0:
			assert.False(t, p.Valid, "T=%g", p.Temperature)
			assert.NotEqual(t, analysis.FailureNone, p.Failure, "T=%g", p.Temperature)
		case p.Temperature >= 40:
			require.True(t, p.Valid, "T=%g", p.Temperature)
			assert.InDelta(t, newton[i].Signal, p.Signal, 1e-9, "T=%g", p.Temperature)
			assert.InDelta(t, newton[i].Idler, p.Idler, 1e-9, "T=%g", p.Temperature)
			assert.InDelta(t, 1/pump, 1/p.Signal+1/p.Idler, 1e-12)
		}
	}
}

func TestGenerate_UnknownMethod(t *testing.T) {
	_, err := analysis.Generate(context.Background(), []float64{40}, 3.4, pump, tref,
		analysis.WithSolver("secant", solver.DefaultSettings()))
	assert.ErrorIs(t, err, solver.ErrUnknownMethod)
}

func TestInvertSingle(t *testing.T) {
	period := degeneratePeriod(t)

	signal, idler, err := analysis.InvertSingle(period, pump, 60, tref)
	require.NoError(t, err)
	assert.Less(t, idler, 0.81)
	assert.Greater(t, signal, 0.81)
	assert.InDelta(t, 1/pump, 1/signal+1/idler, 1e-12)

	// A sweep would turn this into a gap; a single query reports it.
	_, _, err = analysis.InvertSingle(period, pump, 20, tref)
	assert.ErrorIs(t, err, solver.ErrConvergence)
}

func TestSweep_GetResults(t *testing.T) {
	sweep := analysis.NewSweep([]float64{20, 60}, degeneratePeriod(t), pump, tref)
	require.NoError(t, sweep.Execute(context.Background()))

	var a analysis.Analysis = sweep
	results := a.GetResults()
	assert.Equal(t, []float64{20, 60}, results["TEMP"])
	assert.Equal(t, []float64{0, 1}, results["VALID"])
	assert.True(t, math.IsNaN(results["IDLER"][0]))
	assert.InDelta(t, sweep.Curve()[1].Idler, results["IDLER"][1], 0)
}

func TestSweep_LogsGapsAndSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := analysis.Generate(context.Background(), []float64{20, 60}, degeneratePeriod(t), pump, tref,
		analysis.WithLogger(zap.New(core)))
	require.NoError(t, err)

	gaps := logs.FilterMessage("inversion failed, leaving gap").All()
	require.Len(t, gaps, 1)
	assert.Equal(t, 20.0, gaps[0].ContextMap()["temperature"])
	assert.Equal(t, "convergence", gaps[0].ContextMap()["failure"])

	summary := logs.FilterMessage("sweep completed").All()
	require.Len(t, summary, 1)
	assert.EqualValues(t, 2, summary[0].ContextMap()["points"])
	assert.EqualValues(t, 1, summary[0].ContextMap()["failures"])
}

func TestSweep_Recorder(t *testing.T) {
	rec := newCountingRecorder()

	_, err := analysis.Generate(context.Background(), []float64{20, 25, 60, 80}, degeneratePeriod(t), pump, tref,
		analysis.WithRecorder(rec))
	require.NoError(t, err)

	assert.Equal(t, 2, rec.inversions[analysis.FailureNone])
	assert.Equal(t, 2, rec.inversions[analysis.FailureConvergence])
	assert.Equal(t, 1, rec.sweeps)
	assert.Equal(t, 4, rec.points)
	assert.Equal(t, 2, rec.failures)
	assert.Greater(t, rec.misses, uint64(0))
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "none", analysis.FailureNone.String())
	assert.Equal(t, "convergence", analysis.FailureConvergence.String())
	assert.Equal(t, "degenerate", analysis.FailureDegenerate.String())
	assert.Equal(t, "numeric", analysis.FailureNumeric.String())
	assert.Equal(t, "FailureKind(9)", analysis.FailureKind(9).String())
}
