package export

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-qpm/pkg/analysis"
)

// Report is the YAML document of one sweep.
type Report struct {
	Title  string  `yaml:"title,omitempty"`
	Pump   float64 `yaml:"pump_um"`
	Signal float64 `yaml:"reference_signal_um"`
	Idler  float64 `yaml:"reference_idler_um"`
	T0     float64 `yaml:"t0_c"`
	Tref   float64 `yaml:"tref_c"`
	Period float64 `yaml:"period_um"`
	Method string  `yaml:"method"`
	Points []Point `yaml:"points"`
}

// Point omits both wavelengths when the inversion failed.
type Point struct {
	Temperature float64  `yaml:"t_c"`
	Signal      *float64 `yaml:"signal_um,omitempty"`
	Idler       *float64 `yaml:"idler_um,omitempty"`
	Failure     string   `yaml:"failure,omitempty"`
}

func Points(curve analysis.TuningCurve) []Point {
	out := make([]Point, len(curve))
	for i, p := range curve {
		out[i].Temperature = p.Temperature
		if !p.Valid || math.IsNaN(p.Signal) || math.IsNaN(p.Idler) {
			out[i].Failure = p.Failure.String()
			continue
		}
		signal, idler := p.Signal, p.Idler
		out[i].Signal = &signal
		out[i].Idler = &idler
	}
	return out
}

func WriteYAML(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
