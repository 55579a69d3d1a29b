package qpm

import (
	"errors"
	"fmt"
	"math"

	"github.com/edp1096/toy-qpm/pkg/crystal"
)

var (
	// ErrDegenerateConfiguration indicates a wavelength triple that cannot be
	// phase matched: zero momentum mismatch or a non-positive grating period.
	ErrDegenerateConfiguration = errors.New("qpm: degenerate configuration")
)

// Equation is the type-0 collinear grating equation. All three waves use the
// extraordinary axis.
type Equation struct {
	Crystal crystal.Indexer
}

// Default returns the equation for bulk KTP without caching.
func Default() *Equation {
	return &Equation{Crystal: crystal.KTP()}
}

// Partner returns the wavelength completing w to the pump by energy
// conservation: 1/pump = 1/w + 1/partner.
func Partner(pump, w float64) float64 {
	return 1 / (1/pump - 1/w)
}

// Period returns the poling period (um) that phase matches pump -> signal + idler
// at temperature t. Energy conservation is the caller's responsibility.
func (e *Equation) Period(pump, signal, idler, t, tref float64) (float64, error) {
	np := e.Crystal.Index(pump, crystal.Extraordinary, t, tref)
	ns := e.Crystal.Index(signal, crystal.Extraordinary, t, tref)
	ni := e.Crystal.Index(idler, crystal.Extraordinary, t, tref)

	dk := np/pump - ns/signal - ni/idler
	if dk == 0 {
		return 0, fmt.Errorf("%w: zero phase mismatch at pump=%g signal=%g idler=%g T=%g",
			ErrDegenerateConfiguration, pump, signal, idler, t)
	}

	period := 1 / dk
	if math.IsInf(period, 0) || math.IsNaN(period) {
		return 0, fmt.Errorf("%w: non-finite period at pump=%g signal=%g idler=%g T=%g",
			ErrDegenerateConfiguration, pump, signal, idler, t)
	}

	return period, nil
}

// DerivePeriod fixes the grating period from a reference configuration: the
// pump, one of the down-converted wavelengths, and the operating temperature t0.
func (e *Equation) DerivePeriod(pump, reference, t0, tref float64) (float64, error) {
	partner := Partner(pump, reference)

	period, err := e.Period(pump, reference, partner, t0, tref)
	if err != nil {
		return 0, err
	}
	if period <= 0 {
		return 0, fmt.Errorf("%w: non-positive period %g um for pump=%g reference=%g",
			ErrDegenerateConfiguration, period, pump, reference)
	}

	return period, nil
}
