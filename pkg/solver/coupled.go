package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/edp1096/toy-qpm/pkg/matrix"
	"github.com/edp1096/toy-qpm/pkg/qpm"
)

// Coupled solves for (signal, idler) together:
//
//	F1 = 1/pump - 1/signal - 1/idler        = 0
//	F2 = Period(pump, signal, idler) - target = 0
type Coupled struct {
	Equation *qpm.Equation
	settings Settings
}

func NewCoupled(eq *qpm.Equation, settings Settings) *Coupled {
	if eq == nil {
		eq = qpm.Default()
	}
	return &Coupled{Equation: eq, settings: settings.withDefaults()}
}

func (c *Coupled) Invert(target, pump, t, tref float64) (Result, error) {
	sys, err := matrix.NewSystem(2)
	if err != nil {
		return Result{}, err
	}
	defer sys.Destroy()

	var evalErr error
	period := func(signal, idler float64) float64 {
		p, err := c.Equation.Period(pump, signal, idler, t, tref)
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			return math.NaN()
		}
		return p
	}

	derivative := &fd.Settings{Formula: fd.Central, Step: c.settings.Step}
	idler := InitialIdler(pump)
	signal := qpm.Partner(pump, idler)

	for iter := range c.settings.MaxIter {
		f1 := 1/pump - 1/signal - 1/idler
		f2 := period(signal, idler) - target
		if evalErr != nil {
			return Result{}, evalErr
		}
		if !isFinite(f2) {
			return Result{}, fmt.Errorf("%w: residual diverged at signal=%g idler=%g (iteration %d)",
				ErrConvergence, signal, idler, iter)
		}

		dPds := fd.Derivative(func(s float64) float64 { return period(s, idler) }, signal, derivative)
		dPdi := fd.Derivative(func(i float64) float64 { return period(signal, i) }, idler, derivative)
		if evalErr != nil {
			return Result{}, evalErr
		}

		sys.Clear()
		if err := c.stamp(sys, signal, idler, dPds, dPdi, f1, f2); err != nil {
			return Result{}, err
		}
		if err := sys.Solve(); err != nil {
			return Result{}, fmt.Errorf("%w: jacobian solve at signal=%g idler=%g: %v",
				ErrConvergence, signal, idler, err)
		}

		dx := sys.Solution()
		ds, di := dx[1], dx[2]
		if !isFinite(ds) || !isFinite(di) {
			return Result{}, fmt.Errorf("%w: singular jacobian at signal=%g idler=%g (iteration %d)",
				ErrConvergence, signal, idler, iter)
		}

		signal += ds
		idler += di
		if math.Max(math.Abs(ds), math.Abs(di)) < c.settings.Tolerance {
			// Re-derive the signal so the returned pair conserves energy exactly.
			return Result{
				Signal:     qpm.Partner(pump, idler),
				Idler:      idler,
				Iterations: iter + 1,
			}, nil
		}
	}

	return Result{}, fmt.Errorf("%w: failed to converge in %d iterations (T=%g, period=%g)",
		ErrConvergence, c.settings.MaxIter, t, target)
}

// stamp loads J*dx = -F.
func (c *Coupled) stamp(sys *matrix.System, signal, idler, dPds, dPdi, f1, f2 float64) error {
	entries := []struct {
		i, j  int
		value float64
	}{
		{1, 1, 1 / (signal * signal)},
		{1, 2, 1 / (idler * idler)},
		{2, 1, dPds},
		{2, 2, dPdi},
	}
	for _, e := range entries {
		if err := sys.Set(e.i, e.j, e.value); err != nil {
			return err
		}
	}

	if err := sys.SetRHS(1, -f1); err != nil {
		return err
	}
	return sys.SetRHS(2, -f2)
}
