package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/toy-qpm/pkg/solver"
)

var ErrTooFewPoints = errors.New("analysis: a temperature grid needs at least 2 points")

// Sweep inverts a fixed grating period at every temperature of a grid.
type Sweep struct {
	BaseAnalysis
	temperatures []float64
	period       float64 // um
	pump         float64 // um
	tref         float64 // degC
	curve        TuningCurve
}

func NewSweep(temperatures []float64, period, pump, tref float64, opts ...Option) *Sweep {
	return &Sweep{
		BaseAnalysis: *NewBaseAnalysis(opts...),
		temperatures: temperatures,
		period:       period,
		pump:         pump,
		tref:         tref,
	}
}

// Execute fills the curve. Points are independent: a failed inversion becomes
// a gap and never stops the sweep. Only context cancellation returns an error.
func (s *Sweep) Execute(ctx context.Context) error {
	start := time.Now()

	inv, cache, err := s.session()
	if err != nil {
		return err
	}

	curve := make(TuningCurve, len(s.temperatures))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range s.temperatures {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			curve[i] = s.point(inv, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("sweep cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sweep cancelled: %w", err)
	}

	s.curve = curve
	s.results = curve.Results()

	hits, misses := cache.Stats()
	elapsed := time.Since(start)
	s.recorder.ObserveCache(hits, misses)
	s.recorder.ObserveSweep(len(curve), curve.Failures(), elapsed)

	s.logger.Info("sweep completed",
		zap.Int("points", len(curve)),
		zap.Int("failures", curve.Failures()),
		zap.Float64("period", s.period),
		zap.Float64("pump", s.pump),
		zap.Uint64("cacheHits", hits),
		zap.Uint64("cacheMisses", misses),
		zap.Duration("elapsed", elapsed))

	return nil
}

func (s *Sweep) point(inv solver.Inverter, t float64) TuningPoint {
	res, err := inv.Invert(s.period, s.pump, t, s.tref)
	kind := classify(err)
	s.recorder.ObserveInversion(kind, res.Iterations)

	if err != nil {
		s.logger.Debug("inversion failed, leaving gap",
			zap.Float64("temperature", t),
			zap.Stringer("failure", kind),
			zap.Error(err))
		return invalidPoint(t, kind)
	}

	return TuningPoint{
		Temperature: t,
		Signal:      res.Signal,
		Idler:       res.Idler,
		Valid:       true,
	}
}

func (s *Sweep) Curve() TuningCurve {
	return s.curve
}

// Generate runs a sweep and returns its curve: one point per temperature, in
// input order.
func Generate(ctx context.Context, temperatures []float64, period, pump, tref float64, opts ...Option) (TuningCurve, error) {
	sweep := NewSweep(temperatures, period, pump, tref, opts...)
	if err := sweep.Execute(ctx); err != nil {
		return nil, err
	}
	return sweep.Curve(), nil
}

// InvertSingle answers an ad hoc query at one temperature. Unlike a sweep it
// returns the failure to the caller.
func InvertSingle(period, pump, t, tref float64, opts ...Option) (signal, idler float64, err error) {
	a := NewBaseAnalysis(opts...)

	inv, _, err := a.session()
	if err != nil {
		return 0, 0, err
	}

	res, err := inv.Invert(period, pump, t, tref)
	kind := classify(err)
	a.recorder.ObserveInversion(kind, res.Iterations)
	if err != nil {
		a.logger.Debug("single inversion failed",
			zap.Float64("temperature", t),
			zap.Stringer("failure", kind),
			zap.Error(err))
		return 0, 0, err
	}

	return res.Signal, res.Idler, nil
}

// Linspace returns n evenly spaced temperatures from lo to hi inclusive.
func Linspace(lo, hi float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}
