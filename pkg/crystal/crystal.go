package crystal

import (
	"fmt"
	"math"
)

type Axis int

const (
	Ordinary      Axis = iota // KTP y
	Extraordinary             // KTP z
)

func (a Axis) String() string {
	switch a {
	case Ordinary:
		return "y"
	case Extraordinary:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Indexer returns the refractive index at wavelength w (um) and temperature
// t (degC) for a crystal calibrated at tref.
type Indexer interface {
	Index(w float64, axis Axis, t, tref float64) float64
}

// sellmeierCoeffs holds n^2 = A + (B/(w^2-C) + D/(w^2-E) - F) * w^2.
// D is zero for an axis without the infrared pole term.
type sellmeierCoeffs struct {
	A, B, C, D, E, F float64
}

// thermoCoeffs holds dn/dT = 1e-6*(a3/w^3 + a2/w^2 + a1/w + a0) + 1e-8*(b3/w^3 + b2/w^2 + b1/w + b0).
type thermoCoeffs struct {
	A [4]float64 // a3, a2, a1, a0
	B [4]float64 // b3, b2, b1, b0
}

// Crystal is a closed-form dispersion model with per-axis coefficient sets.
type Crystal struct {
	Name      string
	sellmeier [2]sellmeierCoeffs
	thermo    [2]thermoCoeffs
}

// KTP returns flux-grown KTP with the Thorlabs Sellmeier set.
func KTP() *Crystal {
	return &Crystal{
		Name: "KTP",
		sellmeier: [2]sellmeierCoeffs{
			Ordinary:      {A: 2.09930, B: 0.922683, C: 0.0467695, F: 0.0138404},
			Extraordinary: {A: 2.12725, B: 1.18431, C: 0.0514852, D: 0.6603, E: 100.00507, F: 9.68956e-3},
		},
		thermo: [2]thermoCoeffs{
			Ordinary: {
				A: [4]float64{2.6486, -6.0629, 6.3061, 6.2897},
				B: [4]float64{1.3470, -3.5770, 2.2244, -0.14445},
			},
			Extraordinary: {
				A: [4]float64{4.1010, -8.9603, 9.9228, 9.9587},
				B: [4]float64{3.1481, -9.8136, 10.459, -1.1882},
			},
		},
	}
}

// Sellmeier returns the base index. The radicand is taken by absolute value so
// wavelengths outside the calibrated range still give a real number.
func (c *Crystal) Sellmeier(w float64, axis Axis) float64 {
	s := c.sellmeier[axis]
	w2 := w * w

	terms := s.B / (w2 - s.C)
	if s.D != 0 {
		terms += s.D / (w2 - s.E)
	}
	terms -= s.F

	return math.Sqrt(math.Abs(s.A + terms*w2))
}

// ThermoOptic returns dn/dT in 1/degC.
func (c *Crystal) ThermoOptic(w float64, axis Axis) float64 {
	t := c.thermo[axis]
	inv := 1 / w
	inv2 := inv * inv
	inv3 := inv2 * inv

	first := t.A[0]*inv3 + t.A[1]*inv2 + t.A[2]*inv + t.A[3]
	second := t.B[0]*inv3 + t.B[1]*inv2 + t.B[2]*inv + t.B[3]

	return 1e-6*first + 1e-8*second
}

func (c *Crystal) Index(w float64, axis Axis, t, tref float64) float64 {
	return c.Sellmeier(w, axis) + c.ThermoOptic(w, axis)*(t-tref)
}
