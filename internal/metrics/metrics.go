package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "deploy_orchestrator_"

var submissionsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "submissions_total",
		Help: "Number of deployment submissions by workload, operation and outcome",
	},
	[]string{"workload", "operation", "outcome"},
)

var pollsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "polls_total",
		Help: "Number of status polls by outcome",
	},
	[]string{"outcome"},
)

var logLinesCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "log_lines_total",
		Help: "Number of log lines retrieved from the deployment service",
	},
)

var noProgressCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "log_no_progress_total",
		Help: "Number of log fetches stopped by an unchanged continuation token",
	},
)

var cyclesCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "monitor_cycles_total",
		Help: "Number of completed monitor polling cycles",
	},
)

var activeJobsGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: prefix + "monitor_active_jobs",
		Help: "Number of jobs currently in a monitor working set",
	},
)

var finishedCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "jobs_finished_total",
		Help: "Number of jobs that left monitoring, by final status",
	},
	[]string{"status"},
)

// Metrics records orchestrator activity into the default registry
type Metrics struct{}

var m = &Metrics{}

// Get returns the process-wide metrics recorder
func Get() *Metrics {
	return m
}

func (m *Metrics) RecordSubmission(workload, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	submissionsCounter.With(prometheus.Labels{"workload": workload, "operation": operation, "outcome": outcome}).Inc()
}

func (m *Metrics) RecordPoll(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	pollsCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func (m *Metrics) RecordLogLines(n int) {
	logLinesCounter.Add(float64(n))
}

func (m *Metrics) RecordNoProgress() {
	noProgressCounter.Inc()
}

func (m *Metrics) RecordCycle() {
	cyclesCounter.Inc()
}

func (m *Metrics) AddActiveJobs(delta int) {
	activeJobsGauge.Add(float64(delta))
}

func (m *Metrics) RecordFinished(status string) {
	finishedCounter.With(prometheus.Labels{"status": status}).Inc()
}
