package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the state of a provisioning run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// String returns the string representation of the status.
func (s RunStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunRunning, RunSucceeded, RunFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed
}

// Run records one provisioning run: the host environment it ran against,
// the tool verification report, and its outcome.
type Run struct {
	ID         string          `json:"id"`
	Host       string          `json:"host,omitempty"`
	EnvPrefix  string          `json:"env_prefix,omitempty"` // CONDA_PREFIX at run time
	Status     RunStatus       `json:"status"`
	Report     json.RawMessage `json:"report,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
