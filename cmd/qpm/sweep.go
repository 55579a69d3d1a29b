package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edp1096/toy-qpm/internal/metrics"
	"github.com/edp1096/toy-qpm/internal/store"
	"github.com/edp1096/toy-qpm/pkg/analysis"
	"github.com/edp1096/toy-qpm/pkg/export"
	"github.com/edp1096/toy-qpm/pkg/util"
)

type sweepOutputs struct {
	csv     string
	yaml    string
	plot    string
	metrics string
	quiet   bool
}

func newSweepCmd(a *app) *cobra.Command {
	var out sweepOutputs

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Generate the temperature tuning curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSweep(cmd.Context(), cmd.OutOrStdout(), out)
		},
	}

	f := cmd.Flags()
	f.Float64("tmin", 20, "sweep start temperature (degC)")
	f.Float64("tmax", 120, "sweep stop temperature (degC)")
	f.Int("points", 100, "number of temperatures (10-500)")
	f.Int("workers", 0, "parallel inversions, 0 for GOMAXPROCS")
	f.StringVar(&out.csv, "csv", "", "write the curve as CSV")
	f.StringVar(&out.yaml, "yaml", "", "write the curve as YAML")
	f.StringVar(&out.plot, "plot", "", "render the curve as PNG")
	f.StringVar(&out.metrics, "metrics", "", "write Prometheus metrics in text format ('-' for stdout)")
	f.BoolVarP(&out.quiet, "quiet", "q", false, "do not print the curve")
	return cmd
}

func (a *app) runSweep(ctx context.Context, w io.Writer, out sweepOutputs) error {
	cfg := a.cfg

	period, err := a.period()
	if err != nil {
		return err
	}
	temps, err := analysis.Linspace(cfg.Sweep.Min, cfg.Sweep.Max, cfg.Sweep.Points)
	if err != nil {
		return err
	}

	rec := metrics.New()
	curve, err := analysis.Generate(ctx, temps, period, cfg.Pump, cfg.Tref, a.options(analysis.WithRecorder(rec))...)
	if err != nil {
		return err
	}

	if !out.quiet {
		printCurve(w, curve, period, cfg.Display.Decimals, cfg.Display.Nanometers)
	}

	signal, idler := cfg.ReferencePair()
	report := export.Report{
		Title:  cfg.Title,
		Pump:   cfg.Pump,
		Signal: signal,
		Idler:  idler,
		T0:     cfg.T0,
		Tref:   cfg.Tref,
		Period: period,
		Method: cfg.Solver.Method,
		Points: export.Points(curve),
	}

	if out.csv != "" {
		if err := writeFile(out.csv, func(f io.Writer) error { return export.WriteCSV(f, curve) }); err != nil {
			return err
		}
		a.logger.Info("wrote csv", zap.String("path", out.csv))
	}
	if out.yaml != "" {
		if err := writeFile(out.yaml, func(f io.Writer) error { return export.WriteYAML(f, report) }); err != nil {
			return err
		}
		a.logger.Info("wrote yaml", zap.String("path", out.yaml))
	}
	if out.plot != "" {
		title := cfg.Title
		if title == "" {
			title = fmt.Sprintf("KTP tuning, period %s", util.FormatPeriod(period, 3))
		}
		if err := export.SavePNG(curve, title, out.plot); err != nil {
			return err
		}
		a.logger.Info("wrote plot", zap.String("path", out.plot))
	}

	if cfg.Archive != "" {
		id, err := archive(ctx, cfg.Archive, &store.Run{
			Title:  cfg.Title,
			Pump:   cfg.Pump,
			Signal: signal,
			Idler:  idler,
			T0:     cfg.T0,
			Tref:   cfg.Tref,
			Period: period,
			Method: cfg.Solver.Method,
			Curve:  curve,
		})
		if err != nil {
			return err
		}
		a.logger.Info("archived run", zap.Stringer("id", id), zap.String("archive", cfg.Archive))
	}

	switch out.metrics {
	case "":
	case "-":
		return rec.WriteText(w)
	default:
		return writeFile(out.metrics, rec.WriteText)
	}
	return nil
}

func printCurve(w io.Writer, curve analysis.TuningCurve, period float64, decimals int, nm bool) {
	fmt.Fprintf(w, "\nTuning curve (%d points, period %s, %d gaps):\n",
		len(curve), util.FormatPeriod(period, decimals), curve.Failures())
	fmt.Fprintln(w, "Temperature      Signal              Idler")
	fmt.Fprintln(w, "------------------------------------------------")

	for _, p := range curve {
		fmt.Fprintf(w, "%-15s  %-18s  %-18s\n",
			util.FormatTemperature(p.Temperature),
			util.FormatWavelength(p.Signal, decimals, nm),
			util.FormatWavelength(p.Idler, decimals, nm))
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
