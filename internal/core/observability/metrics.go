package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var areaLabel atomic.Value

func init() {
	areaLabel.Store("default")
}

// SetArea sets the area label used when a caller does not name one.
func SetArea(a string) {
	if a == "" {
		a = "default"
	}
	areaLabel.Store(a)
}

func area(a string) string {
	if a != "" {
		return a
	}
	if v, ok := areaLabel.Load().(string); ok && v != "" {
		return v
	}
	return "default"
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	importFeatures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_features_total",
			Help: "Tagged OSM objects seen by the importer, by outcome.",
		},
		[]string{"area", "outcome"},
	)

	footprints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footprints_total",
			Help: "Containment polygon attempts, by outcome.",
		},
		[]string{"area", "outcome"},
	)

	storeOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Latency of storage operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op", "result"},
	)

	searchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_results",
			Help:    "Entities returned per search after distance filtering.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"area"},
	)

	searchUnparseable = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_unparseable_candidates_total",
			Help: "Stored candidates skipped by search because their geometry did not parse.",
		},
		[]string{"area"},
	)

	importJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_jobs_total",
			Help: "Import jobs consumed from the queue, by result.",
		},
		[]string{"result"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, buildInfo,
		importFeatures, footprints, storeOpSeconds, searchResults, searchUnparseable, importJobs,
	}
}

// Init registers every collector on reg (the default registry when nil). Collectors that
// are already registered there are left alone.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled {
		return
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// Feature outcomes.
const (
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
	OutcomeInvalid = "invalid_geometry"
)

func IncFeature(a, outcome string) {
	importFeatures.WithLabelValues(area(a), outcome).Inc()
}

func IncFootprint(a string, degenerate bool) {
	outcome := "created"
	if degenerate {
		outcome = "degenerate"
	}
	footprints.WithLabelValues(area(a), outcome).Inc()
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOpSeconds.WithLabelValues(op, result).Observe(durationSeconds)
}

func ObserveSearch(a string, results int) {
	searchResults.WithLabelValues(area(a)).Observe(float64(results))
}

func AddUnparseable(a string, n int) {
	searchUnparseable.WithLabelValues(area(a)).Add(float64(n))
}

func IncImportJob(result string) {
	importJobs.WithLabelValues(result).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
