package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		want     string
	}{
		{3.4262800188883697e-6, 3, "3.426 um"},
		{0.81e-6, 4, "810.0000 nm"},
		{1.5, 1, "1.5 m"},
		{0, 2, "0.00 m"},
		{2.6e-3, 0, "3 mm"},
		{7e-12, 1, "7.0 pm"},
		{3e-15, 1, "3.0e-15 m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValueFactor(tt.value, "m", tt.decimals))
	}
}

func TestFormatWavelength(t *testing.T) {
	assert.Equal(t, "0.8100 um", FormatWavelength(0.81, 4, false))
	assert.Equal(t, "810.0000 nm", FormatWavelength(0.81, 4, true))
	assert.Equal(t, "1 um", FormatWavelength(0.749, 0, false))
	assert.Equal(t, "0.7490034 um", FormatWavelength(0.74900341, 7, false))
	assert.Equal(t, Gap, FormatWavelength(math.NaN(), 4, true))
}

func TestFormatPeriod(t *testing.T) {
	assert.Equal(t, "3.4263 um", FormatPeriod(3.4262800188883697, 4))
}

func TestFormatTemperature(t *testing.T) {
	assert.Equal(t, "  35.00 degC", FormatTemperature(35))
	assert.Equal(t, " 120.00 degC", FormatTemperature(120))
}
