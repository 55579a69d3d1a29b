// Package solver recovers the signal/idler pair that a fixed grating period
// phase matches at a given temperature.
//
// Two methods share one contract:
//
//   - Newton eliminates the signal through energy conservation and runs scalar
//     Newton-Raphson on the idler wavelength.
//   - Coupled keeps both wavelengths as unknowns and solves the 2x2 system of
//     energy conservation and the grating equation with a sparse LU Jacobian.
//
// Both start from the idler paired with a 0.9 um signal. The start point is
// not derived from the target period, so in regions with two roots (signal and
// idler swapped) it decides which one is returned. For some references far
// from degeneracy Newton cycles and reports ErrConvergence instead.
package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/edp1096/toy-qpm/internal/consts"
	"github.com/edp1096/toy-qpm/pkg/qpm"
)

var (
	// ErrConvergence indicates the iteration budget ran out, the derivative
	// vanished, or the iterate left the real line.
	ErrConvergence = errors.New("solver: no convergence")
	// ErrUnknownMethod indicates an unsupported solver method name.
	ErrUnknownMethod = errors.New("solver: unknown method")
)

type Method string

const (
	MethodNewton  Method = "newton"
	MethodCoupled Method = "coupled"
)

const (
	DefaultMaxIter   = 50
	DefaultTolerance = 1e-8
	DefaultStep      = 1e-6  // finite-difference step (um)
	DefaultMinSlope  = 1e-14 // |f'| below this is treated as zero
)

type Settings struct {
	MaxIter   int
	Tolerance float64 // on the Newton step (um)
	Step      float64
	MinSlope  float64
}

func DefaultSettings() Settings {
	return Settings{
		MaxIter:   DefaultMaxIter,
		Tolerance: DefaultTolerance,
		Step:      DefaultStep,
		MinSlope:  DefaultMinSlope,
	}
}

// withDefaults fills zero fields so a partially set Settings stays usable.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxIter <= 0 {
		s.MaxIter = d.MaxIter
	}
	if s.Tolerance <= 0 {
		s.Tolerance = d.Tolerance
	}
	if s.Step <= 0 {
		s.Step = d.Step
	}
	if s.MinSlope <= 0 {
		s.MinSlope = d.MinSlope
	}
	return s
}

type Result struct {
	Signal     float64
	Idler      float64
	Iterations int
}

type Inverter interface {
	Invert(target, pump, t, tref float64) (Result, error)
}

// New returns the inverter for method. An empty method selects Newton.
func New(method Method, eq *qpm.Equation, settings Settings) (Inverter, error) {
	switch method {
	case "", MethodNewton:
		return NewNewton(eq, settings), nil
	case MethodCoupled:
		return NewCoupled(eq, settings), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// InitialIdler is the Newton start point: the idler whose signal is 0.9 um.
func InitialIdler(pump float64) float64 {
	return qpm.Partner(pump, consts.CompanionWavelength)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
