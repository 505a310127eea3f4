package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qiita-spots/qp-shogun/internal/events"
	"github.com/qiita-spots/qp-shogun/internal/shell"
	"github.com/qiita-spots/qp-shogun/internal/task"
	"github.com/qiita-spots/qp-shogun/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run dispatched jobs from the event bus until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return fmt.Errorf("QP_SHOGUN_NATS_URL is required for the worker")
		}
		ctx := cmd.Context()

		client, err := newAuthenticatedClient(ctx, cfg.ServerURL)
		if err != nil {
			return err
		}

		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		pub := newPublisher()
		defer pub.Close()

		w := &worker.Worker{
			Runner: &task.Runner{
				Server: client,
				Shell:  shell.Runner{},
				DBs: task.Databases{
					Filter:    cfg.FilterDBDir,
					Shogun:    cfg.ShogunDBDir,
					SortMeRNA: cfg.SortMeRNADBDir,
				},
				Logger:    slog.Default(),
				Publisher: pub,
			},
			Subscriber: sub,
			Logger:     slog.Default(),
		}
		if err := w.Start(ctx); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s)
		case <-ctx.Done():
		}
		w.Stop()
		return nil
	},
}
