package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := Get()

	success := submissionsCounter.With(prometheus.Labels{"workload": "go-bucket", "operation": "update", "outcome": "success"})
	failure := submissionsCounter.With(prometheus.Labels{"workload": "go-bucket", "operation": "update", "outcome": "failure"})
	beforeSuccess, beforeFailure := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	m.RecordSubmission("go-bucket", "update", nil)
	m.RecordSubmission("go-bucket", "update", errors.New("rejected"))
	m.RecordSubmission("go-bucket", "update", nil)

	assert.Equal(t, beforeSuccess+2, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+1, testutil.ToFloat64(failure))

	beforeLines := testutil.ToFloat64(logLinesCounter)
	m.RecordLogLines(5)
	assert.Equal(t, beforeLines+5, testutil.ToFloat64(logLinesCounter))

	beforeActive := testutil.ToFloat64(activeJobsGauge)
	m.AddActiveJobs(3)
	m.AddActiveJobs(-2)
	assert.Equal(t, beforeActive+1, testutil.ToFloat64(activeJobsGauge))
	m.AddActiveJobs(-1)

	degraded := finishedCounter.With(prometheus.Labels{"status": "degraded"})
	beforeDegraded := testutil.ToFloat64(degraded)
	m.RecordFinished("degraded")
	assert.Equal(t, beforeDegraded+1, testutil.ToFloat64(degraded))
}
