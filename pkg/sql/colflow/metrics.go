// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colflow

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hashjoin"

// Metrics are the prometheus metrics of a Scheduler.
type Metrics struct {
	DriversScheduled prometheus.Counter
	DriversRunning   prometheus.Gauge
	DriversQueued    prometheus.Gauge
	DriversParked    prometheus.Gauge
	QuantaRun        prometheus.Counter
	BlockedParks     prometheus.Counter
	// TasksFinished is labeled by the outcome of the task: "ok" or the kind
	// of the error that failed it.
	TasksFinished *prometheus.CounterVec
	RowsOutput    prometheus.Counter
	QueueWait     prometheus.Histogram
	QuantumTime   prometheus.Histogram
}

// NewMetrics creates unregistered scheduler metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		DriversScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "drivers_scheduled_total",
			Help:      "Number of drivers handed to the scheduler.",
		}),
		DriversRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "drivers_running",
			Help:      "Number of drivers currently running a quantum.",
		}),
		DriversQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "drivers_queued",
			Help:      "Number of runnable drivers waiting for a worker.",
		}),
		DriversParked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "drivers_parked",
			Help:      "Number of drivers waiting on a blocked future.",
		}),
		QuantaRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "quanta_total",
			Help:      "Number of quanta run by all drivers.",
		}),
		BlockedParks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "blocked_parks_total",
			Help:      "Number of times a driver was parked on a blocked future.",
		}),
		TasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "tasks_finished_total",
			Help:      "Number of finished tasks by outcome.",
		}, []string{"outcome"}),
		RowsOutput: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "rows_output_total",
			Help:      "Number of rows consumed by the sinks of output pipelines.",
		}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "queue_wait_seconds",
			Help:      "Time runnable drivers spent waiting for a worker.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		QuantumTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "scheduler",
			Name:      "quantum_seconds",
			Help:      "Wall time of driver quanta.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DriversScheduled, m.DriversRunning, m.DriversQueued, m.DriversParked,
		m.QuantaRun, m.BlockedParks, m.TasksFinished, m.RowsOutput,
		m.QueueWait, m.QuantumTime,
	}
}

// Register registers every metric with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "registering scheduler metrics")
		}
	}
	return nil
}
