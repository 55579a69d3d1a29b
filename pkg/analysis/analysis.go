package analysis

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/edp1096/toy-qpm/pkg/crystal"
	"github.com/edp1096/toy-qpm/pkg/qpm"
	"github.com/edp1096/toy-qpm/pkg/solver"
)

type Analysis interface {
	Execute(ctx context.Context) error
	GetResults() map[string][]float64
}

// Recorder receives per-inversion and per-sweep observations.
type Recorder interface {
	ObserveInversion(kind FailureKind, iterations int)
	ObserveSweep(points, failures int, elapsed time.Duration)
	ObserveCache(hits, misses uint64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveInversion(FailureKind, int) {}
func (nopRecorder) ObserveSweep(int, int, time.Duration) {}
func (nopRecorder) ObserveCache(uint64, uint64) {}

type Option func(*BaseAnalysis)

func WithLogger(logger *zap.Logger) Option {
	return func(a *BaseAnalysis) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(a *BaseAnalysis) {
		if r != nil {
			a.recorder = r
		}
	}
}

func WithSolver(method solver.Method, settings solver.Settings) Option {
	return func(a *BaseAnalysis) {
		a.method = method
		a.settings = settings
	}
}

// WithWorkers bounds sweep parallelism. n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *BaseAnalysis) {
		a.workers = n
	}
}

func WithCacheCapacity(n int) Option {
	return func(a *BaseAnalysis) {
		a.cacheCapacity = n
	}
}

func WithCrystal(c *crystal.Crystal) Option {
	return func(a *BaseAnalysis) {
		if c != nil {
			a.crystal = c
		}
	}
}

type BaseAnalysis struct {
	logger        *zap.Logger
	recorder      Recorder
	crystal       *crystal.Crystal
	method        solver.Method
	settings      solver.Settings
	workers       int
	cacheCapacity int
	results       map[string][]float64 // key: column name, value: one entry per point
}

func NewBaseAnalysis(opts ...Option) *BaseAnalysis {
	a := &BaseAnalysis{
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		crystal:  crystal.KTP(),
		method:   solver.MethodNewton,
		settings: solver.DefaultSettings(),
		results:  make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.GOMAXPROCS(0)
	}
	return a
}

// session builds a fresh cache-backed inverter. The cache lives as long as
// the returned values.
func (a *BaseAnalysis) session() (solver.Inverter, *crystal.Cache, error) {
	cache := crystal.NewCache(a.crystal, a.cacheCapacity)
	inv, err := solver.New(a.method, &qpm.Equation{Crystal: cache}, a.settings)
	if err != nil {
		return nil, nil, err
	}
	return inv, cache, nil
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

func classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, solver.ErrConvergence):
		return FailureConvergence
	case errors.Is(err, qpm.ErrDegenerateConfiguration):
		return FailureDegenerate
	default:
		return FailureNumeric
	}
}
