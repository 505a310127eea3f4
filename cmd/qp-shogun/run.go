package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/qiita-spots/qp-shogun/internal/events"
	"github.com/qiita-spots/qp-shogun/internal/shell"
	"github.com/qiita-spots/qp-shogun/internal/task"
)

// runCmd is the entrypoint Qiita invokes for each job:
// qp-shogun run <server-url> <job-id> <output-dir>
var runCmd = &cobra.Command{
	Use:   "run <server-url> <job-id> <output-dir>",
	Short: "Execute one Qiita job and report its result",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, jobID, outDir := args[0], args[1], args[2]
		ctx := cmd.Context()

		client, err := newAuthenticatedClient(ctx, serverURL)
		if err != nil {
			return err
		}

		runner := &task.Runner{
			Server: client,
			Shell:  shell.Runner{},
			DBs: task.Databases{
				Filter:    cfg.FilterDBDir,
				Shogun:    cfg.ShogunDBDir,
				SortMeRNA: cfg.SortMeRNADBDir,
			},
			Logger:    slog.Default(),
			Publisher: newPublisher(),
		}
		defer runner.Publisher.Close()

		return runner.RunJob(ctx, jobID, outDir)
	},
}

// newPublisher connects to NATS when configured, otherwise events are
// dropped.
func newPublisher() events.Publisher {
	if cfg.NATSURL == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		slog.Warn("events disabled", "err", err)
		return &events.NoopPublisher{}
	}
	return pub
}
