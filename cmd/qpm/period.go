package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edp1096/toy-qpm/pkg/util"
)

func newPeriodCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "period",
		Short: "Derive the poling period of the reference configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := a.period()
			if err != nil {
				return err
			}

			cfg := a.cfg
			signal, idler := cfg.ReferencePair()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Pump:        %s\n", util.FormatWavelength(cfg.Pump, cfg.Display.Decimals, cfg.Display.Nanometers))
			fmt.Fprintf(w, "Signal:      %s\n", util.FormatWavelength(signal, cfg.Display.Decimals, cfg.Display.Nanometers))
			fmt.Fprintf(w, "Idler:       %s\n", util.FormatWavelength(idler, cfg.Display.Decimals, cfg.Display.Nanometers))
			fmt.Fprintf(w, "Temperature: %s\n", util.FormatTemperature(cfg.T0))
			fmt.Fprintf(w, "Period:      %s\n", util.FormatPeriod(period, cfg.Display.Decimals))
			return nil
		},
	}
}
