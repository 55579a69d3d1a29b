package analysis

import (
	"fmt"
	"math"
)

// FailureKind tells why a tuning point carries no data.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureConvergence
	FailureDegenerate
	FailureNumeric
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureConvergence:
		return "convergence"
	case FailureDegenerate:
		return "degenerate"
	case FailureNumeric:
		return "numeric"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// NoData marks the wavelengths of an invalid point.
var NoData = math.NaN()

type TuningPoint struct {
	Temperature float64 // degC
	Signal      float64 // um, NoData when !Valid
	Idler       float64 // um, NoData when !Valid
	Valid       bool
	Failure     FailureKind
}

func invalidPoint(t float64, kind FailureKind) TuningPoint {
	return TuningPoint{
		Temperature: t,
		Signal:      NoData,
		Idler:       NoData,
		Failure:     kind,
	}
}

// TuningCurve is ordered exactly as the temperatures it was generated from.
type TuningCurve []TuningPoint

func (c TuningCurve) Temperatures() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Temperature
	}
	return out
}

func (c TuningCurve) Failures() int {
	n := 0
	for _, p := range c {
		if !p.Valid {
			n++
		}
	}
	return n
}

// Results returns the curve as named columns. VALID is 1 or 0.
func (c TuningCurve) Results() map[string][]float64 {
	results := map[string][]float64{
		"TEMP":   make([]float64, len(c)),
		"SIGNAL": make([]float64, len(c)),
		"IDLER":  make([]float64, len(c)),
		"VALID":  make([]float64, len(c)),
	}
	for i, p := range c {
		results["TEMP"][i] = p.Temperature
		results["SIGNAL"][i] = p.Signal
		results["IDLER"][i] = p.Idler
		if p.Valid {
			results["VALID"][i] = 1
		}
	}
	return results
}
