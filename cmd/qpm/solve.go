package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-qpm/pkg/analysis"
	"github.com/edp1096/toy-qpm/pkg/util"
)

func newSolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Find the signal/idler pair at one temperature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := a.period()
			if err != nil {
				return err
			}

			cfg := a.cfg
			t := cfg.QueryTemperature()
			signal, idler, err := analysis.InvertSingle(period, cfg.Pump, t, cfg.Tref, a.options()...)
			if err != nil {
				return fmt.Errorf("no phase-matched pair at %s: %w", util.FormatTemperature(t), err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Temperature: %s\n", util.FormatTemperature(t))
			fmt.Fprintf(w, "Period:      %s\n", util.FormatPeriod(period, cfg.Display.Decimals))
			fmt.Fprintf(w, "Signal:      %s\n", util.FormatWavelength(signal, cfg.Display.Decimals, cfg.Display.Nanometers))
			fmt.Fprintf(w, "Idler:       %s\n", util.FormatWavelength(idler, cfg.Display.Decimals, cfg.Display.Nanometers))
			return nil
		},
	}

	cmd.Flags().Float64("temp", 35, "query temperature (degC), defaults to t0")
	return cmd
}
