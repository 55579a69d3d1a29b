package export

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/toy-qpm/pkg/analysis"
)

// Plot draws signal and idler against temperature. Each contiguous run of
// valid points is its own line, so gaps stay visible.
func Plot(curve analysis.TuningCurve, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Temperature (degC)"
	p.Y.Label.Text = "Wavelength (um)"
	p.Add(plotter.NewGrid())

	for i, col := range []struct {
		name  string
		value func(analysis.TuningPoint) float64
	}{
		{"Signal", func(tp analysis.TuningPoint) float64 { return tp.Signal }},
		{"Idler", func(tp analysis.TuningPoint) float64 { return tp.Idler }},
	} {
		for j, seg := range segments(curve, col.value) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, fmt.Errorf("%s segment: %w", col.name, err)
			}
			line.Color = plotutil.Color(i)
			line.Width = vg.Points(1.5)
			p.Add(line)
			if j == 0 {
				p.Legend.Add(col.name, line)
			}
		}
	}

	return p, nil
}

// SavePNG renders the curve to path. The format follows the file extension.
func SavePNG(curve analysis.TuningCurve, title, path string) error {
	p, err := Plot(curve, title)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}

func segments(curve analysis.TuningCurve, value func(analysis.TuningPoint) float64) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for _, p := range curve {
		if !p.Valid {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: p.Temperature, Y: value(p)})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
