package dyno

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. Package-level so multiple Pipeline instances (as in
// tests) share collectors instead of fighting over registration.
var (
	metricSamplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyno_samples_total",
		Help: "Valid timing samples processed by the pipeline.",
	})
	metricSamplesAbsentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyno_samples_absent_total",
		Help: "Frames carrying no revolution (non-positive period).",
	})
	metricLinesMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyno_lines_malformed_total",
		Help: "Serial frames that failed to parse.",
	})
	metricIngestDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyno_ingest_dropped_total",
		Help: "Samples dropped because the ingest buffer was full.",
	})
	metricOutliersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dyno_outliers_rejected_total",
		Help: "Torque/power candidates rejected by the outlier filter.",
	}, []string{"channel"})
	metricStallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyno_stalls_total",
		Help: "Live to stalled transitions.",
	})
	metricLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyno_live",
		Help: "1 while samples are arriving within the stop timeout, else 0.",
	})
	metricZeroFloorActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyno_zero_floor_active",
		Help: "1 while the zero floor gate forces speed/RPM to zero.",
	})

	metricRPM = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyno_rpm",
		Help: "Latest published roller RPM.",
	})
	metricSpeedKMH = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyno_speed_kmh",
		Help: "Latest published linear speed in km/h.",
	})
	metricTorqueNM = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyno_torque_nm",
		Help: "Latest published torque in N·m.",
	})
	metricPowerW = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyno_power_w",
		Help: "Latest published power in watts.",
	})
)
