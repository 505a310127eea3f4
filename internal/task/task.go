// Package task implements the processing commands this plugin offers to
// Qiita: host-read filtering, adapter trimming, Shogun taxonomic profiling,
// rRNA removal, and combined KneadData cleaning. Each task turns job
// parameters into external tool invocations and reports the produced
// artifacts.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/qiita-spots/qp-shogun/internal/events"
	"github.com/qiita-spots/qp-shogun/internal/model"
	"github.com/qiita-spots/qp-shogun/internal/qiita"
	"github.com/qiita-spots/qp-shogun/internal/shell"
)

// Command names as registered with Qiita.
const (
	CmdQCFilter  = "QC_Filter"
	CmdAtropos   = "Atropos v1.1.15"
	CmdShogun    = "Shogun v1.0.8"
	CmdSortMeRNA = "Sortmerna v2.1b"
	CmdKneadData = "KneadData v0.5.1"
)

// Server is the subset of the Qiita API the task runner relies on.
type Server interface {
	GetArtifact(ctx context.Context, id string) (*qiita.Artifact, error)
	GetPrepTemplate(ctx context.Context, id int) (*qiita.PrepTemplate, error)
	GetJob(ctx context.Context, jobID string) (*qiita.JobInfo, error)
	UpdateJobStep(ctx context.Context, jobID, msg string) error
	CompleteJob(ctx context.Context, jobID string, success bool, artifacts []model.ArtifactInfo, errMsg string) error
}

// Databases holds the reference database directories tasks resolve against.
type Databases struct {
	Filter    string // QC_FILTER_DB_DP
	Shogun    string // QC_SHOGUN_DB_DP
	SortMeRNA string // QC_SORTMERNA_DB_DP
}

// Runner executes plugin jobs against a Qiita server.
type Runner struct {
	Server    Server
	Shell     shell.Runner
	DBs       Databases
	Logger    *slog.Logger
	Publisher events.Publisher
}

// taskFunc runs one command's job and returns the artifacts it produced.
type taskFunc func(r *Runner, ctx context.Context, jobID string, params model.Parameters, outDir string) ([]model.ArtifactInfo, error)

var tasksByCommand = map[string]taskFunc{
	CmdQCFilter:  (*Runner).qcFilter,
	CmdAtropos:   (*Runner).atroposTrim,
	CmdShogun:    (*Runner).shogun,
	CmdSortMeRNA: (*Runner).sortMeRNA,
	CmdKneadData: (*Runner).kneaddata,
}

// KnownCommands lists the command names this runner can execute.
func KnownCommands() []string {
	return []string{CmdQCFilter, CmdAtropos, CmdShogun, CmdSortMeRNA, CmdKneadData}
}

// RunJob fetches the job from the server, dispatches it to the matching
// task, and completes the job with the result. The returned error reflects
// the job outcome; completion is reported to the server either way.
func (r *Runner) RunJob(ctx context.Context, jobID, outDir string) error {
	job, err := r.Server.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetching job %s: %w", jobID, err)
	}

	fn, ok := tasksByCommand[job.Command]
	if !ok {
		msg := fmt.Sprintf("unknown command %q", job.Command)
		if cerr := r.Server.CompleteJob(ctx, jobID, false, nil, msg); cerr != nil {
			r.logger().Error("failed to complete job", "job_id", jobID, "err", cerr)
		}
		return fmt.Errorf("job %s: %s", jobID, msg)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	r.logger().Info("job started", "job_id", jobID, "command", job.Command, "out_dir", outDir)
	r.publish(ctx, events.TopicJobStarted, events.JobStarted{JobID: jobID, Command: job.Command})

	artifacts, err := fn(r, ctx, jobID, job.Parameters.Clone(), outDir)
	if err != nil {
		r.logger().Error("job failed", "job_id", jobID, "command", job.Command, "err", err)
		r.publish(ctx, events.TopicJobFailed, events.JobFailed{JobID: jobID, Command: job.Command, Error: err.Error()})
		if cerr := r.Server.CompleteJob(ctx, jobID, false, nil, err.Error()); cerr != nil {
			r.logger().Error("failed to complete job", "job_id", jobID, "err", cerr)
		}
		return err
	}

	if err := r.Server.CompleteJob(ctx, jobID, true, artifacts, ""); err != nil {
		return fmt.Errorf("completing job %s: %w", jobID, err)
	}
	r.logger().Info("job completed", "job_id", jobID, "artifacts", len(artifacts))
	r.publish(ctx, events.TopicJobCompleted, events.JobCompleted{JobID: jobID, Command: job.Command, Artifacts: len(artifacts)})
	return nil
}

// collectInfo resolves the job's input artifact into matched read pairs.
// The "input" parameter is consumed here so task parameter formatting never
// sees it.
func (r *Runner) collectInfo(ctx context.Context, jobID string, params model.Parameters) ([]model.SamplePair, error) {
	artifactID, ok := params["input"]
	if !ok || artifactID == "" {
		return nil, fmt.Errorf("job %s has no input artifact", jobID)
	}
	delete(params, "input")

	artifact, err := r.Server.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("fetching artifact %s: %w", artifactID, err)
	}
	if len(artifact.PrepInfo) == 0 {
		return nil, fmt.Errorf("artifact %s has no prep information", artifactID)
	}
	prep, err := r.Server.GetPrepTemplate(ctx, artifact.PrepInfo[0])
	if err != nil {
		return nil, fmt.Errorf("fetching prep template %d: %w", artifact.PrepInfo[0], err)
	}

	return MatchReadPairs(
		artifact.Files["raw_forward_seqs"],
		artifact.Files["raw_reverse_seqs"],
		prep.QiimeMap,
	)
}

// runCommands executes cmds in order, posting a step heartbeat before each
// one. msgFmt must contain a %d verb for the command index. On failure the
// error carries both output streams and the exact command, so the Qiita job
// log is actionable.
func (r *Runner) runCommands(ctx context.Context, jobID string, cmds []string, msgFmt, name string) error {
	for i, cmd := range cmds {
		if err := r.Server.UpdateJobStep(ctx, jobID, fmt.Sprintf(msgFmt, i+1)); err != nil {
			return fmt.Errorf("updating job step: %w", err)
		}
		r.publish(ctx, events.TopicJobStep, events.JobStep{JobID: jobID, Step: fmt.Sprintf(msgFmt, i+1)})
		res := r.Shell.Run(ctx, cmd)
		if res.Failed() {
			return fmt.Errorf("error running %s:\nStd out: %s\nStd err: %s\n\nCommand run was:\n%s",
				name, res.Stdout, res.Stderr, cmd)
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, jobID, msg string) error {
	r.publish(ctx, events.TopicJobStep, events.JobStep{JobID: jobID, Step: msg})
	return r.Server.UpdateJobStep(ctx, jobID, msg)
}

func (r *Runner) publish(ctx context.Context, topic string, event any) {
	if r.Publisher == nil {
		return
	}
	if err := r.Publisher.Publish(ctx, topic, event); err != nil {
		r.logger().Warn("failed to publish event", "topic", topic, "err", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
