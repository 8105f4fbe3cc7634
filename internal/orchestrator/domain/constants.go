package domain

// Deployment status values reported by the service. The service may add
// more; anything outside the non-terminal set counts as terminal.
const (
	StatusNotStarted = "not-started"
	StatusAccepted   = "accepted"
	StatusRunning    = "running"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// Operation is the action a deployment performs on its target
type Operation string

const (
	OperationUpdate  Operation = "update"
	OperationPreview Operation = "preview"
	OperationDestroy Operation = "destroy"
	OperationRefresh Operation = "refresh"
)

// Valid reports whether op is one of the known operations
func (op Operation) Valid() bool {
	switch op {
	case OperationUpdate, OperationPreview, OperationDestroy, OperationRefresh:
		return true
	}
	return false
}

// WorkloadKind selects the payload-building strategy for a submission
type WorkloadKind string

const (
	WorkloadSimpleResource WorkloadKind = "simple-resource"
	WorkloadBucketTime     WorkloadKind = "bucket-time"
	WorkloadGoBucket       WorkloadKind = "go-bucket"
	WorkloadLambdaTemplate WorkloadKind = "lambda-template"
	WorkloadInlineYAML     WorkloadKind = "yamlcaml"
)

// IsTerminal classifies a status value. An empty status is what the
// service returns for freshly created deployments, so it is non-terminal.
func IsTerminal(status string) bool {
	switch status {
	case "", StatusNotStarted, StatusAccepted, StatusRunning:
		return false
	}
	return true
}

// LogsQueryable reports whether the service exposes step structure for a
// deployment in this status. Before that the logs endpoint cannot be
// addressed.
func LogsQueryable(status string) bool {
	switch status {
	case "", StatusNotStarted, StatusAccepted:
		return false
	}
	return true
}
