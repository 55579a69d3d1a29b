package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/edp1096/toy-qpm/pkg/qpm"
)

type Newton struct {
	Equation *qpm.Equation
	settings Settings
}

func NewNewton(eq *qpm.Equation, settings Settings) *Newton {
	if eq == nil {
		eq = qpm.Default()
	}
	return &Newton{Equation: eq, settings: settings.withDefaults()}
}

// Invert solves Period(pump, Partner(pump, idler), idler, t) = target for idler.
func (n *Newton) Invert(target, pump, t, tref float64) (Result, error) {
	var evalErr error
	residual := func(idler float64) float64 {
		period, err := n.Equation.Period(pump, qpm.Partner(pump, idler), idler, t, tref)
		if err != nil {
			if evalErr == nil {
				evalErr = err
			}
			return math.NaN()
		}
		return period - target
	}

	derivative := &fd.Settings{Formula: fd.Central, Step: n.settings.Step}
	x := InitialIdler(pump)

	for iter := range n.settings.MaxIter {
		fx := residual(x)
		if evalErr != nil {
			return Result{}, evalErr
		}
		if fx == 0 {
			return n.result(pump, x, iter), nil
		}
		if !isFinite(fx) {
			return Result{}, fmt.Errorf("%w: residual diverged at idler=%g (iteration %d)", ErrConvergence, x, iter)
		}

		slope := fd.Derivative(residual, x, derivative)
		if evalErr != nil {
			return Result{}, evalErr
		}
		if !isFinite(slope) || math.Abs(slope) < n.settings.MinSlope {
			return Result{}, fmt.Errorf("%w: derivative vanished at idler=%g (iteration %d)", ErrConvergence, x, iter)
		}

		next := x - fx/slope
		if !isFinite(next) {
			return Result{}, fmt.Errorf("%w: step diverged at idler=%g (iteration %d)", ErrConvergence, x, iter)
		}
		if math.Abs(next-x) < n.settings.Tolerance {
			return n.result(pump, next, iter+1), nil
		}
		x = next
	}

	return Result{}, fmt.Errorf("%w: failed to converge in %d iterations (T=%g, period=%g)",
		ErrConvergence, n.settings.MaxIter, t, target)
}

func (n *Newton) result(pump, idler float64, iterations int) Result {
	return Result{
		Signal:     qpm.Partner(pump, idler),
		Idler:      idler,
		Iterations: iterations,
	}
}
