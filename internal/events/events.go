package events

import "context"

// Event topic constants
const (
	TopicJobStarted   = "qp.shogun.job.started"
	TopicJobStep      = "qp.shogun.job.step"
	TopicJobCompleted = "qp.shogun.job.completed"
	TopicJobFailed    = "qp.shogun.job.failed"

	// Job dispatch (published by Qiita-side tooling, consumed by the worker).
	TopicJobDispatch = "qp.shogun.job.dispatch"

	// Provisioning events
	TopicProvisionCompleted = "qp.shogun.provision.completed"
)

// Event types

type JobStarted struct {
	JobID   string `json:"job_id"`
	Command string `json:"command"`
}

type JobStep struct {
	JobID string `json:"job_id"`
	Step  string `json:"step"`
}

type JobCompleted struct {
	JobID     string `json:"job_id"`
	Command   string `json:"command"`
	Artifacts int    `json:"artifacts"`
}

type JobFailed struct {
	JobID   string `json:"job_id"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

// JobDispatch asks a worker to run one job.
type JobDispatch struct {
	JobID  string `json:"job_id"`
	OutDir string `json:"out_dir"`
}

type ProvisionCompleted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
