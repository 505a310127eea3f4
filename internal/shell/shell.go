// Package shell runs the external bioinformatics tools this plugin wraps.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds quick checks (version probes, service pings).
// Job commands run under the job context instead and are not capped here.
const DefaultTimeout = 30 * time.Second

// Result holds the outcome of one command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Failed reports whether the command could not run or exited nonzero.
func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// Output returns stdout, falling back to stderr when stdout is empty.
// Version banners land on either stream depending on the tool.
func (r Result) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	return r.Stderr
}

// Runner executes shell commands. The zero value runs against the host.
type Runner struct {
	// Dir is the working directory for commands; empty means inherit.
	Dir string
	// Env is overlaid on the process environment.
	Env map[string]string
}

// Run executes command via "sh -c" under ctx, capturing both streams.
// Pipelines are part of the command contract here (bowtie2 | samtools | ...),
// so a shell is required rather than a direct exec.
func (r Runner) Run(ctx context.Context, command string) Result {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.Dir != "" {
		if info, err := os.Stat(r.Dir); err == nil && info.IsDir() {
			cmd.Dir = r.Dir
		}
	}

	cmd.Env = os.Environ()
	for k, v := range r.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.Err = err
			res.ExitCode = -1
		}
	}
	return res
}

// Check runs command with the default timeout. Intended for probes where a
// hung tool must not stall provisioning.
func (r Runner) Check(ctx context.Context, command string) Result {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	return r.Run(ctx, command)
}
