package util

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-qpm/internal/consts"
)

// Gap is printed in place of a wavelength that has no data.
const Gap = "--"

// FormatValueFactor prints an SI value with a prefix chosen from its
// magnitude, e.g. 3.426e-6 m -> "3.426 um".
func FormatValueFactor(value float64, unit string, decimals int) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1 || absValue == 0:
		return fmt.Sprintf("%.*f %s", decimals, value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.*f m%s", decimals, value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.*f u%s", decimals, value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.*f n%s", decimals, value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.*f p%s", decimals, value*1e12, unit)
	default:
		return fmt.Sprintf("%.*e %s", decimals, value, unit)
	}
}

// FormatWavelength prints a wavelength given in um, optionally rescaled to nm.
// NaN prints as Gap.
func FormatWavelength(um float64, decimals int, nanometers bool) string {
	if math.IsNaN(um) {
		return Gap
	}
	if nanometers {
		return fmt.Sprintf("%.*f nm", decimals, um*consts.MicronToNano)
	}
	return fmt.Sprintf("%.*f um", decimals, um)
}

// FormatPeriod prints a poling period given in um through FormatValueFactor.
func FormatPeriod(um float64, decimals int) string {
	return FormatValueFactor(um*1e-6, "m", decimals)
}

func FormatTemperature(t float64) string {
	return fmt.Sprintf("%7.2f degC", t) // e.g. " 35.00 degC"
}
