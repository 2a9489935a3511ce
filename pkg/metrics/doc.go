/*
Package metrics defines the Prometheus metrics of osd-activate.

All metrics are registered on the default registry at package init.
osd-activate is a short-lived process, so nothing is served over HTTP; instead
WriteTextfile dumps the registry in the text exposition format for the node
exporter's textfile collector to pick up.

# Metrics

	osd_activate_runs_total{kind, result}
	    Activation runs. kind is device, directory or unknown (target could
	    not be classified); result is succeeded, failed or already-mounted.

	osd_activate_last_success_timestamp_seconds
	    Unix time of the last successful run.

	osd_activate_race_lost_total
	    Runs that found their device already mounted at the canonical path
	    by a concurrent activation.

	osd_activate_steps_total{step, action}
	    State machine steps (allocate, initialize, mark-init, authorize) that
	    were run or skipped because their marker already existed.

	osd_activate_step_duration_seconds{step}
	    Duration of steps that ran.

# Usage

	timer := metrics.NewTimer()
	// ... run the step ...
	timer.ObserveDurationVec(metrics.StepDuration, "initialize")
	metrics.StepsTotal.WithLabelValues("initialize", "run").Inc()

	if err := metrics.WriteTextfile("/var/lib/node_exporter/osd_activate.prom"); err != nil {
		logger.Warn().Err(err).Msg("failed to export metrics")
	}
*/
package metrics
