// Package prometheus holds training progress metrics registered with the
// default prometheus registry, next to the request metrics of
// supermq's pkg/prometheus.
package prometheus

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MakeProgress returns a gauge of training progress labelled by measure.
//
//	progress := prometheus.MakeProgress("hetfl", "server")
func MakeProgress(namespace, subsystem string) metrics.Gauge {
	return kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "progress",
		Help:      "Latest round loss, update norm and test accuracy.",
	}, []string{"measure"})
}
