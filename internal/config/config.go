package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/edp1096/toy-qpm/internal/consts"
	"github.com/edp1096/toy-qpm/pkg/deck"
	"github.com/edp1096/toy-qpm/pkg/qpm"
	"github.com/edp1096/toy-qpm/pkg/solver"
)

// ErrInvalidRange indicates a configuration value outside its accepted range.
var ErrInvalidRange = errors.New("config: value out of range")

const EnvPrefix = "QPM"

// Accepted ranges
const (
	MinPump     = 0.1 // um
	MaxPump     = 2.0 // um
	MinPoints   = 10
	MaxPoints   = 500
	MaxDecimals = 10

	MaxSignalReference = 2.0   // um
	MaxIdlerReference  = 3.0   // um
	MinT0              = 25.0  // degC
	MaxT0              = 100.0 // degC

	// wavelengthSlack absorbs SI-prefix rounding (0.81u -> 0.8099999999999999).
	wavelengthSlack = 1e-9 // um
)

const (
	RoleSignal = "signal"
	RoleIdler  = "idler"
)

type Reference struct {
	Role       string  `mapstructure:"role" yaml:"role"`
	Wavelength float64 `mapstructure:"wavelength" yaml:"wavelength"` // um
}

type Sweep struct {
	Min    float64 `mapstructure:"min" yaml:"min"` // degC
	Max    float64 `mapstructure:"max" yaml:"max"` // degC
	Points int     `mapstructure:"points" yaml:"points"`
}

type Display struct {
	Decimals   int  `mapstructure:"decimals" yaml:"decimals"`
	Nanometers bool `mapstructure:"nanometers" yaml:"nanometers"`
}

type Solver struct {
	Method    string  `mapstructure:"method" yaml:"method"`
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`
	MaxIter   int     `mapstructure:"maxiter" yaml:"maxIter"`
	// Workers bounds sweep parallelism; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

type Log struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

type Config struct {
	Title     string    `mapstructure:"title" yaml:"title,omitempty"`
	Pump      float64   `mapstructure:"pump" yaml:"pump"` // um
	Reference Reference `mapstructure:"reference" yaml:"reference"`
	T0        float64   `mapstructure:"t0" yaml:"t0"`     // degC
	Tref      float64   `mapstructure:"tref" yaml:"tref"` // degC
	Sweep     Sweep     `mapstructure:"sweep" yaml:"sweep"`
	// Query is the single-query temperature. Nil means T0.
	Query   *float64 `mapstructure:"query" yaml:"query,omitempty"`
	Display Display  `mapstructure:"display" yaml:"display"`
	Solver  Solver   `mapstructure:"solver" yaml:"solver"`
	Log     Log      `mapstructure:"log" yaml:"log"`
	// Archive is the SQLite run archive path; empty disables archiving.
	Archive string `mapstructure:"archive" yaml:"archive,omitempty"`
}

var defaults = map[string]any{
	"title":                "",
	"pump":                 0.405,
	"reference.role":       RoleSignal,
	"reference.wavelength": 0.81,
	"t0":                   35.0,
	"tref":                 consts.ReferenceTemp,
	"sweep.min":            20.0,
	"sweep.max":            120.0,
	"sweep.points":         100,
	"display.decimals":     4,
	"display.nanometers":   false,
	"solver.method":        string(solver.MethodNewton),
	"solver.tolerance":     solver.DefaultTolerance,
	"solver.maxiter":       solver.DefaultMaxIter,
	"solver.workers":       0,
	"log.level":            "info",
	"log.development":      false,
	"archive":              "",
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"pump":      "pump",
	"role":      "reference.role",
	"reference": "reference.wavelength",
	"t0":        "t0",
	"tref":      "tref",
	"tmin":      "sweep.min",
	"tmax":      "sweep.max",
	"points":    "sweep.points",
	"temp":      "query",
	"decimals":  "display.decimals",
	"nm":        "display.nanometers",
	"method":    "solver.method",
	"tol":       "solver.tolerance",
	"max-iter":  "solver.maxiter",
	"workers":   "solver.workers",
	"log-level": "log.level",
	"log-dev":   "log.development",
	"archive":   "archive",
}

// deckOptions maps .option names onto configuration keys.
var deckOptions = map[string]string{
	"decimals":  "display.decimals",
	"nm":        "display.nanometers",
	"method":    "solver.method",
	"tol":       "solver.tolerance",
	"tolerance": "solver.tolerance",
	"maxiter":   "solver.maxiter",
	"workers":   "solver.workers",
}

func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not load: %v", err))
	}
	return cfg
}

// Load layers defaults, an optional file, QPM_* environment variables and the
// flags that were set on the command line, in increasing precedence. A .qpm or
// .deck file is read as an input deck, anything else as YAML. The result is
// validated.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("query"); err != nil {
		return nil, fmt.Errorf("binding query env: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Reference.Role = strings.ToLower(cfg.Reference.Role)
	cfg.Solver.Method = strings.ToLower(cfg.Solver.Method)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qpm", ".deck":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading deck: %w", err)
		}
		d, err := deck.Parse(string(data))
		if err != nil {
			return fmt.Errorf("parsing deck %s: %w", path, err)
		}
		settings, err := FromDeck(d)
		if err != nil {
			return err
		}
		return v.MergeConfigMap(settings)
	default:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		return nil
	}
}

// FromDeck converts the statements present in a deck into a nested settings
// map suitable for viper.MergeConfigMap.
func FromDeck(d *deck.Deck) (map[string]any, error) {
	flat := make(map[string]any)
	if d.Title != "" {
		flat["title"] = d.Title
	}
	if d.Pump != nil {
		flat["pump"] = *d.Pump
	}
	if d.Reference != nil {
		flat["reference.role"] = d.Reference.Role
		flat["reference.wavelength"] = d.Reference.Wavelength
	}
	if d.T0 != nil {
		flat["t0"] = *d.T0
	}
	if d.Tref != nil {
		flat["tref"] = *d.Tref
	}
	if d.Sweep != nil {
		flat["sweep.min"] = d.Sweep.Min
		flat["sweep.max"] = d.Sweep.Max
		flat["sweep.points"] = d.Sweep.Points
	}
	if d.Query != nil {
		flat["query"] = *d.Query
	}
	for name, value := range d.Options {
		key, ok := deckOptions[name]
		if !ok {
			return nil, fmt.Errorf("unknown deck option: %s", name)
		}
		flat[key] = value
	}

	nested := make(map[string]any)
	for key, value := range flat {
		parent, child, ok := strings.Cut(key, ".")
		if !ok {
			nested[key] = value
			continue
		}
		m, _ := nested[parent].(map[string]any)
		if m == nil {
			m = make(map[string]any)
			nested[parent] = m
		}
		m[child] = value
	}
	return nested, nil
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	if c.Pump < MinPump || c.Pump > MaxPump {
		return fmt.Errorf("%w: pump must be between %g and %g um, got %g", ErrInvalidRange, MinPump, MaxPump, c.Pump)
	}
	if c.Reference.Role != RoleSignal && c.Reference.Role != RoleIdler {
		return fmt.Errorf("%w: reference role must be %q or %q, got %q", ErrInvalidRange, RoleSignal, RoleIdler, c.Reference.Role)
	}
	if c.Reference.Wavelength < 2*c.Pump-wavelengthSlack {
		return fmt.Errorf("%w: reference wavelength must be >= 2*pump (%g um), got %g", ErrInvalidRange, 2*c.Pump, c.Reference.Wavelength)
	}
	maxReference := MaxSignalReference
	if c.Reference.Role == RoleIdler {
		maxReference = MaxIdlerReference
	}
	if c.Reference.Wavelength > maxReference {
		return fmt.Errorf("%w: %s reference wavelength must be <= %g um, got %g", ErrInvalidRange, c.Reference.Role, maxReference, c.Reference.Wavelength)
	}
	if c.T0 < c.Tref {
		return fmt.Errorf("%w: t0 (%g) must be >= tref (%g)", ErrInvalidRange, c.T0, c.Tref)
	}
	if c.T0 < MinT0 || c.T0 > MaxT0 {
		return fmt.Errorf("%w: t0 must be between %g and %g degC, got %g", ErrInvalidRange, MinT0, MaxT0, c.T0)
	}
	if c.Sweep.Max <= c.Sweep.Min {
		return fmt.Errorf("%w: sweep max (%g) must exceed sweep min (%g)", ErrInvalidRange, c.Sweep.Max, c.Sweep.Min)
	}
	if c.Sweep.Points < MinPoints || c.Sweep.Points > MaxPoints {
		return fmt.Errorf("%w: sweep points must be between %d and %d, got %d", ErrInvalidRange, MinPoints, MaxPoints, c.Sweep.Points)
	}
	if c.Display.Decimals < 0 || c.Display.Decimals > MaxDecimals {
		return fmt.Errorf("%w: decimals must be between 0 and %d, got %d", ErrInvalidRange, MaxDecimals, c.Display.Decimals)
	}
	switch solver.Method(c.Solver.Method) {
	case solver.MethodNewton, solver.MethodCoupled:
	default:
		return fmt.Errorf("%w: solver method must be %q or %q, got %q", ErrInvalidRange, solver.MethodNewton, solver.MethodCoupled, c.Solver.Method)
	}
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("%w: solver tolerance must be > 0, got %g", ErrInvalidRange, c.Solver.Tolerance)
	}
	if c.Solver.MaxIter <= 0 {
		return fmt.Errorf("%w: solver maxIter must be > 0, got %d", ErrInvalidRange, c.Solver.MaxIter)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidRange, c.Solver.Workers)
	}
	return nil
}

// ReferencePair returns the (signal, idler) pair of the reference configuration.
func (c *Config) ReferencePair() (signal, idler float64) {
	partner := qpm.Partner(c.Pump, c.Reference.Wavelength)
	if c.Reference.Role == RoleIdler {
		return partner, c.Reference.Wavelength
	}
	return c.Reference.Wavelength, partner
}

func (c *Config) QueryTemperature() float64 {
	if c.Query != nil {
		return *c.Query
	}
	return c.T0
}

func (c *Config) SolverSettings() solver.Settings {
	s := solver.DefaultSettings()
	s.Tolerance = c.Solver.Tolerance
	s.MaxIter = c.Solver.MaxIter
	return s
}

func (c *Config) SolverMethod() solver.Method {
	return solver.Method(c.Solver.Method)
}
