package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SetupPrometheus returns a registry with runtime and process collectors, a
// fitness_build_info gauge labeled with the running version, and any extra
// collectors (e.g. the pgx pool).
func SetupPrometheus(versionInfo string, extraCollectors ...prometheus.Collector) *prometheus.Registry {
	if versionInfo == "" {
		versionInfo = "unknown"
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsGC, collectors.MetricsMemory),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "fitness",
		Name:        "build_info",
		Help:        "Always 1, labeled with the running version.",
		ConstLabels: prometheus.Labels{"version": versionInfo},
	})
	buildInfo.Set(1)
	promRegistry.MustRegister(buildInfo)

	for _, c := range extraCollectors {
		if c != nil {
			promRegistry.MustRegister(c)
		}
	}

	return promRegistry
}
