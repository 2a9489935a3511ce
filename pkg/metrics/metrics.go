package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osd_activate_runs_total",
			Help: "Total number of activation runs by target kind and result",
		},
		[]string{"kind", "result"},
	)

	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "osd_activate_last_success_timestamp_seconds",
			Help: "Unix time of the last successful activation",
		},
	)

	RaceLostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "osd_activate_race_lost_total",
			Help: "Activations that found the device already mounted at its canonical path",
		},
	)

	// State machine metrics
	StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osd_activate_steps_total",
			Help: "Activation steps by step name and action (run or skip)",
		},
		[]string{"step", "action"},
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osd_activate_step_duration_seconds",
			Help:    "Time taken by activation steps that ran, in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"step"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(LastSuccessTimestamp)
	prometheus.MustRegister(RaceLostTotal)
	prometheus.MustRegister(StepsTotal)
	prometheus.MustRegister(StepDuration)
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node exporter's textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
