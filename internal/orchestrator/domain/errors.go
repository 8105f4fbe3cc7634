package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is returned when a submission names an unknown operation
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrMissingJobID is returned when the service accepts a submission without assigning an id
	ErrMissingJobID = errors.New("deployment response has no id")

	// ErrJobDegraded is returned when a job is dropped from monitoring after repeated poll failures
	ErrJobDegraded = errors.New("job degraded after repeated poll failures")
)

// UnsupportedWorkloadError is returned when no payload strategy is registered for a workload kind
type UnsupportedWorkloadError struct {
	Kind WorkloadKind
}

func (e *UnsupportedWorkloadError) Error() string {
	return fmt.Sprintf("unsupported workload kind %q", e.Kind)
}

// NoProgressError is returned when the logs endpoint hands back a
// continuation token that does not move past the requested offset
type NoProgressError struct {
	JobID      string
	Step       int
	Offset     int
	NextOffset int
}

func (e *NoProgressError) Error() string {
	return fmt.Sprintf("log pagination made no progress for job %s: step %d offset %d returned next offset %d",
		e.JobID, e.Step, e.Offset, e.NextOffset)
}

// PollError ties a poll failure to the job it happened on
type PollError struct {
	JobID string
	Err   error
}

func (e *PollError) Error() string {
	return "poll job " + e.JobID + ": " + e.Err.Error()
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// SubmitError ties a submission failure to the request that caused it
type SubmitError struct {
	Workload  WorkloadKind
	Operation Operation
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit %s %s: %v", e.Operation, e.Workload, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
