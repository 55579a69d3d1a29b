package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edp1096/toy-qpm/internal/config"
	"github.com/edp1096/toy-qpm/internal/logging"
	"github.com/edp1096/toy-qpm/pkg/analysis"
	"github.com/edp1096/toy-qpm/pkg/qpm"
)

// app is the per-invocation state shared by subcommands.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "qpm",
		Short: "Temperature tuning of quasi-phase-matched SPDC in KTP",
		Long: `qpm fixes a poling period from a reference configuration (pump,
one down-converted wavelength, operating temperature) and follows the
signal/idler pair that period phase matches as the crystal is heated.

Settings come from defaults, an optional --config file (YAML, or an input
deck with .qpm/.deck extension), QPM_* environment variables and flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (.yaml) or input deck (.qpm, .deck)")
	pf.Float64("pump", 0.405, "pump wavelength (um)")
	pf.String("role", config.RoleSignal, "reference wavelength role: signal or idler")
	pf.Float64("reference", 0.81, "reference wavelength (um)")
	pf.Float64("t0", 35, "operating temperature of the reference configuration (degC)")
	pf.Float64("tref", 25, "calibration temperature of the thermo-optic data (degC)")
	pf.String("method", "newton", "inversion method: newton or coupled")
	pf.Float64("tol", 1e-8, "Newton step tolerance (um)")
	pf.Int("max-iter", 50, "Newton iteration budget")
	pf.Int("decimals", 4, "decimals shown for wavelengths (0-10)")
	pf.Bool("nm", false, "show wavelengths in nm")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-dev", false, "human readable development logs")
	pf.String("archive", "", "SQLite run archive")

	root.AddCommand(
		newPeriodCmd(a),
		newSweepCmd(a),
		newSolveCmd(a),
		newRunsCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// period derives the grating period of the configured reference.
func (a *app) period() (float64, error) {
	period, err := qpm.Default().DerivePeriod(a.cfg.Pump, a.cfg.Reference.Wavelength, a.cfg.T0, a.cfg.Tref)
	if err != nil {
		return 0, fmt.Errorf("deriving period: %w", err)
	}
	return period, nil
}

func (a *app) options(extra ...analysis.Option) []analysis.Option {
	opts := []analysis.Option{
		analysis.WithLogger(a.logger),
		analysis.WithSolver(a.cfg.SolverMethod(), a.cfg.SolverSettings()),
		analysis.WithWorkers(a.cfg.Solver.Workers),
	}
	return append(opts, extra...)
}
