package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/edp1096/toy-qpm/pkg/analysis"
)

const namespace = "qpm"

// Recorder collects solver and sweep statistics on its own registry. It is
// safe for concurrent use and satisfies analysis.Recorder.
type Recorder struct {
	registry    *prometheus.Registry
	inversions  *prometheus.CounterVec
	iterations  prometheus.Histogram
	sweeps      prometheus.Histogram
	points      prometheus.Counter
	gaps        prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

var _ analysis.Recorder = (*Recorder)(nil)

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		inversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inversions_total",
			Help:      "Wavelength inversions by outcome.",
		}, []string{"result"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "newton_iterations",
			Help:      "Newton iterations spent per inversion.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
		}),
		sweeps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a tuning-curve sweep.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_points_total",
			Help:      "Temperatures evaluated by sweeps.",
		}),
		gaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_gaps_total",
			Help:      "Sweep temperatures left without data.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_cache_hits_total",
			Help:      "Refractive index cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_cache_misses_total",
			Help:      "Refractive index cache misses.",
		}),
	}

	r.registry.MustRegister(r.inversions, r.iterations, r.sweeps, r.points, r.gaps, r.cacheHits, r.cacheMisses)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveInversion(kind analysis.FailureKind, iterations int) {
	result := "ok"
	if kind != analysis.FailureNone {
		result = kind.String()
	}
	r.inversions.WithLabelValues(result).Inc()
	if iterations > 0 {
		r.iterations.Observe(float64(iterations))
	}
}

func (r *Recorder) ObserveSweep(points, failures int, elapsed time.Duration) {
	r.sweeps.Observe(elapsed.Seconds())
	r.points.Add(float64(points))
	r.gaps.Add(float64(failures))
}

func (r *Recorder) ObserveCache(hits, misses uint64) {
	r.cacheHits.Add(float64(hits))
	r.cacheMisses.Add(float64(misses))
}

// WriteText dumps every collected metric in the Prometheus text format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
