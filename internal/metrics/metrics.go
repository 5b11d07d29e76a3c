package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	snapshotsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wisefleet",
			Subsystem: "engine",
			Name:      "snapshots_applied_total",
			Help:      "Snapshots reconciled into the live fleet view.",
		},
	)
	decodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wisefleet",
			Subsystem: "engine",
			Name:      "decode_failures_total",
			Help:      "Malformed snapshots or events dropped while keeping the last view.",
		},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wisefleet",
			Subsystem: "engine",
			Name:      "reconnects_total",
			Help:      "Store subscription reconnect attempts.",
		},
	)
	inserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisefleet",
			Subsystem: "store",
			Name:      "inserts_total",
			Help:      "Vehicle insert attempts by outcome.",
		},
		[]string{"outcome"},
	)
	telemetryReadings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wisefleet",
			Subsystem: "telemetry",
			Name:      "readings_total",
			Help:      "Odometer readings received over MQTT by result.",
		},
		[]string{"result"},
	)
	fleetVehicles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wisefleet",
			Subsystem: "fleet",
			Name:      "vehicles",
			Help:      "Vehicles in the current fleet view.",
		},
	)
	fleetServiceDue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wisefleet",
			Subsystem: "fleet",
			Name:      "service_due",
			Help:      "Vehicles at or past their service threshold in the current view.",
		},
	)
)

// RegisterMetrics 幂等注册所有采集器
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			snapshotsApplied,
			decodeFailures,
			reconnects,
			inserts,
			telemetryReadings,
			fleetVehicles,
			fleetServiceDue,
		)
	})
}

func RecordSnapshotApplied(totalVehicles, serviceDue int) {
	RegisterMetrics()
	snapshotsApplied.Inc()
	fleetVehicles.Set(float64(totalVehicles))
	fleetServiceDue.Set(float64(serviceDue))
}

func RecordDecodeFailure() {
	RegisterMetrics()
	decodeFailures.Inc()
}

func RecordReconnect() {
	RegisterMetrics()
	reconnects.Inc()
}

func RecordInsert(success bool) {
	RegisterMetrics()
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	inserts.WithLabelValues(outcome).Inc()
}

// RecordTelemetryReading result 取值 accepted / ignored / failed
func RecordTelemetryReading(result string) {
	RegisterMetrics()
	telemetryReadings.WithLabelValues(result).Inc()
}
