package crystal_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-qpm/pkg/crystal"
)

// TestSellmeier_KnownValues checks the z and y axis at the pump and the
// degenerate down-converted wavelength.
func TestSellmeier_KnownValues(t *testing.T) {
	ktp := crystal.KTP()

	tests := []struct {
		name string
		w    float64
		axis crystal.Axis
		want float64
	}{
		{"z pump", 0.405, crystal.Extraordinary, 1.9623173056357093},
		{"z degenerate", 0.81, crystal.Extraordinary, 1.8443672263926987},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ktp.Sellmeier(tt.w, tt.axis), 1e-12)
		})
	}

	// KTP is positive biaxial: nz > ny across the visible and near infrared.
	for _, w := range []float64{0.405, 0.532, 0.81, 1.064, 1.55} {
		assert.Greater(t, ktp.Sellmeier(w, crystal.Extraordinary), ktp.Sellmeier(w, crystal.Ordinary), "w=%g", w)
	}
}

// TestSellmeier_NormalDispersion verifies the index falls with wavelength
// inside the calibrated window.
func TestSellmeier_NormalDispersion(t *testing.T) {
	ktp := crystal.KTP()
	for _, axis := range []crystal.Axis{crystal.Ordinary, crystal.Extraordinary} {
		prev := math.Inf(1)
		for w := 0.4; w <= 3.0; w += 0.05 {
			n := ktp.Sellmeier(w, axis)
			assert.Less(t, n, prev, "axis=%s w=%g", axis, w)
			prev = n
		}
	}
}

// TestSellmeier_NegativeRadicand exercises the absolute-value guard: below the
// UV resonance the radicand is negative but the result stays real.
func TestSellmeier_NegativeRadicand(t *testing.T) {
	ktp := crystal.KTP()
	n := ktp.Sellmeier(0.2, crystal.Extraordinary)
	assert.False(t, math.IsNaN(n))
	assert.GreaterOrEqual(t, n, 0.0)
}

func TestIndex_TemperatureCorrection(t *testing.T) {
	ktp := crystal.KTP()
	w := 0.81

	// No correction at the calibration temperature.
	assert.Equal(t, ktp.Sellmeier(w, crystal.Extraordinary), ktp.Index(w, crystal.Extraordinary, 25, 25))

	dn := ktp.ThermoOptic(w, crystal.Extraordinary)
	assert.InDelta(t, 1.5e-5, dn, 1e-5, "z-axis dn/dT should be of order 1e-5 per degC")

	got := ktp.Index(w, crystal.Extraordinary, 75, 25)
	assert.InDelta(t, ktp.Sellmeier(w, crystal.Extraordinary)+50*dn, got, 1e-15)
	assert.Greater(t, got, ktp.Index(w, crystal.Extraordinary, 25, 25))
}

func TestAxis_String(t *testing.T) {
	assert.Equal(t, "y", crystal.Ordinary.String())
	assert.Equal(t, "z", crystal.Extraordinary.String())
	assert.Equal(t, "Axis(7)", crystal.Axis(7).String())
}

func TestCache_MatchesCrystal(t *testing.T) {
	ktp := crystal.KTP()
	cache := crystal.NewCache(ktp, 0)

	for _, w := range []float64{0.405, 0.6, 0.81, 1.2} {
		for _, temp := range []float64{20, 35, 120} {
			want := ktp.Index(w, crystal.Extraordinary, temp, 25)
			assert.InDelta(t, want, cache.Index(w, crystal.Extraordinary, temp, 25), 1e-15)
		}
	}

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(4), misses, "one miss per distinct wavelength")
	assert.Equal(t, uint64(8), hits)
	assert.Equal(t, 4, cache.Len())
}

func TestCache_KeyIncludesAxis(t *testing.T) {
	ktp := crystal.KTP()
	cache := crystal.NewCache(ktp, 0)

	z := cache.Index(0.81, crystal.Extraordinary, 25, 25)
	y := cache.Index(0.81, crystal.Ordinary, 25, 25)
	assert.NotEqual(t, z, y)
	assert.Equal(t, 2, cache.Len())
}

func TestCache_Capacity(t *testing.T) {
	ktp := crystal.KTP()
	cache := crystal.NewCache(ktp, 2)

	for _, w := range []float64{0.5, 0.6, 0.7, 0.8} {
		cache.Index(w, crystal.Extraordinary, 30, 25)
	}
	require.Equal(t, 2, cache.Len())

	// Values beyond capacity are still computed correctly.
	assert.InDelta(t, ktp.Index(0.8, crystal.Extraordinary, 30, 25), cache.Index(0.8, crystal.Extraordinary, 30, 25), 1e-15)
}

func TestCache_Concurrent(t *testing.T) {
	ktp := crystal.KTP()
	cache := crystal.NewCache(ktp, 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := 0.5 + float64(i%8)*0.05
			cache.Index(w, crystal.Extraordinary, 40, 25)
		}(i)
	}
	wg.Wait()

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(32), hits+misses)
	assert.Equal(t, 8, cache.Len())
}
