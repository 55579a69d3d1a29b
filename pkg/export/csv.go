package export

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/edp1096/toy-qpm/pkg/analysis"
)

// Column names of the tabular export.
const (
	ColTemperature = "temperature_c"
	ColSignal      = "signal_um"
	ColIdler       = "idler_um"
	ColValid       = "valid"
	ColFailure     = "failure"
)

// DataFrame lays a curve out one row per temperature. Gaps keep NaN
// wavelengths.
func DataFrame(curve analysis.TuningCurve) dataframe.DataFrame {
	temps := make([]float64, len(curve))
	signals := make([]float64, len(curve))
	idlers := make([]float64, len(curve))
	valid := make([]bool, len(curve))
	failures := make([]string, len(curve))

	for i, p := range curve {
		temps[i] = p.Temperature
		signals[i] = p.Signal
		idlers[i] = p.Idler
		valid[i] = p.Valid
		failures[i] = p.Failure.String()
	}

	return dataframe.New(
		series.New(temps, series.Float, ColTemperature),
		series.New(signals, series.Float, ColSignal),
		series.New(idlers, series.Float, ColIdler),
		series.New(valid, series.Bool, ColValid),
		series.New(failures, series.String, ColFailure),
	)
}

func WriteCSV(w io.Writer, curve analysis.TuningCurve) error {
	df := DataFrame(curve)
	if df.Err != nil {
		return fmt.Errorf("building dataframe: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
