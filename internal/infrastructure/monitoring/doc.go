/*
Package monitoring collects Prometheus metrics for session operations and
sync service traffic.

# Overview

Metrics implements the progress notifier interface, so combining it with the
log notifier counts and times every tracked operation. Each instance owns its
registry; nothing is registered on the global default registry.

# Usage

	metrics := monitoring.NewMetrics()
	n := notify.Combine(notify.NewLog(logger), metrics)

	// after the run
	summary, err := metrics.Summary()

# Exposition

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
*/
package monitoring
