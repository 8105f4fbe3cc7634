package domain

import "time"

// Job is one submitted deployment as seen by the orchestrator
type Job struct {
	ID         string       `json:"id"`
	BatchID    string       `json:"batch_id,omitempty"`
	Workload   WorkloadKind `json:"workload"`
	Operation  Operation    `json:"operation"`
	Target     string       `json:"target"`
	Status     string       `json:"status"`
	ConsoleURL string       `json:"console_url,omitempty"`
	Degraded   bool         `json:"degraded,omitempty"`
	LastError  string       `json:"last_error,omitempty"`

	// Cursor stays nil until the job's logs become queryable
	Cursor *LogCursor `json:"cursor,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job's last known status is terminal
func (j *Job) Terminal() bool {
	return IsTerminal(j.Status)
}

// LogCursor tracks read progress through a job's step-ordered log store
type LogCursor struct {
	JobIndex   int `json:"job_index"`
	StepIndex  int `json:"step_index"`
	Offset     int `json:"offset"`
	TotalSteps int `json:"total_steps"`

	// AnnouncedStep is the highest step whose boundary marker was emitted
	AnnouncedStep int `json:"announced_step"`
}

// Exhausted reports whether every known step has been read
func (c *LogCursor) Exhausted() bool {
	return c.StepIndex >= c.TotalSteps
}

// GitSource overrides where a workload's program is fetched from
type GitSource struct {
	RepoURL string `json:"repo_url,omitempty" yaml:"repo_url"`
	Branch  string `json:"branch,omitempty" yaml:"branch"`
	RepoDir string `json:"repo_dir,omitempty" yaml:"repo_dir"`
}

// SubmitContext carries side data merged into a submission payload
type SubmitContext struct {
	Target         string            `json:"target,omitempty" yaml:"target"`
	Source         *GitSource        `json:"source,omitempty" yaml:"source"`
	Env            map[string]string `json:"env,omitempty" yaml:"env"`
	PreRunCommands []string          `json:"pre_run_commands,omitempty" yaml:"pre_run_commands"`
	// Program is inline program text (YAML program, lambda handler code)
	Program     string `json:"program,omitempty" yaml:"program"`
	StackConfig string `json:"stack_config,omitempty" yaml:"stack_config"`
}

// Request asks for one deployment of a workload
type Request struct {
	Workload  WorkloadKind  `json:"workload" yaml:"workload"`
	Operation Operation     `json:"operation" yaml:"operation"`
	Context   SubmitContext `json:"context" yaml:"context"`
}
