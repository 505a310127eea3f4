package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/qiita-spots/qp-shogun/internal/events"
	"github.com/qiita-spots/qp-shogun/internal/idgen"
	"github.com/qiita-spots/qp-shogun/internal/model"
	"github.com/qiita-spots/qp-shogun/internal/refdb"
	"github.com/qiita-spots/qp-shogun/internal/registry"
	"github.com/qiita-spots/qp-shogun/internal/shell"
)

// Provisioner runs the full host preparation sequence. Optional
// collaborators (Store, Publisher, Fetcher, Register) are skipped when nil.
type Provisioner struct {
	Shell    shell.Runner
	Tools    []Tool
	Services []string // host:port addrs that must accept connections first
	Wait     time.Duration
	Archives []refdb.Archive
	Fetcher  *refdb.Fetcher

	// Register performs the plugin registration step against Qiita.
	Register func(ctx context.Context) error

	Store     registry.Store
	Publisher events.Publisher
	Logger    *slog.Logger

	EnvPrefix string // CONDA_PREFIX, recorded on the run
}

// Run executes the sequence: wait for services, verify the pinned tools,
// stage reference databases, register the plugin. The returned run carries
// the tool report and final status; it is persisted when a store is
// configured, and the run outcome is returned as the error.
func (p *Provisioner) Run(ctx context.Context) (*model.Run, error) {
	run, err := p.startRun(ctx)
	if err != nil {
		return nil, err
	}

	report, seqErr := p.sequence(ctx, run)
	run.Report = report

	status := model.RunSucceeded
	if seqErr != nil {
		status = model.RunFailed
	}
	p.finishRun(ctx, run, status)

	p.publish(ctx, events.TopicProvisionCompleted, events.ProvisionCompleted{
		RunID:  run.ID,
		Status: string(status),
	})
	return run, seqErr
}

func (p *Provisioner) sequence(ctx context.Context, run *model.Run) (json.RawMessage, error) {
	if len(p.Services) > 0 {
		wait := p.Wait
		if wait == 0 {
			wait = 2 * time.Minute
		}
		p.logger().Info("waiting for services", "services", p.Services, "timeout", wait)
		if err := WaitForServices(ctx, p.Services, wait, p.logger()); err != nil {
			return nil, err
		}
	}

	tools := p.Tools
	if tools == nil {
		tools = PinnedTools
	}
	p.logger().Info("verifying pinned tools", "count", len(tools))
	results, verifyErr := Verify(ctx, p.Shell, tools)
	report, err := json.Marshal(results)
	if err != nil {
		report = nil
	}
	if verifyErr != nil {
		return report, verifyErr
	}

	if len(p.Archives) > 0 {
		p.logger().Info("staging reference databases", "count", len(p.Archives))
		if err := refdb.Stage(ctx, p.Fetcher, p.Archives, p.logger()); err != nil {
			return report, err
		}
	}

	if p.Register != nil {
		p.logger().Info("registering plugin")
		if err := p.Register(ctx); err != nil {
			return report, fmt.Errorf("registering plugin: %w", err)
		}
	}

	return report, nil
}

func (p *Provisioner) startRun(ctx context.Context) (*model.Run, error) {
	id, err := idgen.Generate()
	if err != nil {
		return nil, err
	}
	host, _ := os.Hostname()
	run := &model.Run{
		ID:        id,
		Host:      host,
		EnvPrefix: p.EnvPrefix,
		Status:    model.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if p.Store != nil {
		if err := p.Store.InsertRun(ctx, run); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}
	return run, nil
}

func (p *Provisioner) finishRun(ctx context.Context, run *model.Run, status model.RunStatus) {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	if p.Store == nil {
		return
	}
	if err := p.Store.FinishRun(ctx, run.ID, status, run.Report); err != nil {
		p.logger().Error("failed to record run outcome", "run_id", run.ID, "err", err)
	}
}

func (p *Provisioner) publish(ctx context.Context, topic string, event any) {
	if p.Publisher == nil {
		return
	}
	if err := p.Publisher.Publish(ctx, topic, event); err != nil {
		p.logger().Warn("failed to publish event", "topic", topic, "err", err)
	}
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
