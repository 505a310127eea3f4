// Package worker runs dispatched jobs from the event bus: it subscribes to
// the job dispatch topic and feeds each request through the task runner.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/qiita-spots/qp-shogun/internal/events"
	"github.com/qiita-spots/qp-shogun/internal/task"
)

// Worker consumes job dispatch events and executes them.
type Worker struct {
	Runner     *task.Runner
	Subscriber events.Subscriber
	Logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// Start subscribes to the dispatch topic and begins processing. Jobs run
// one at a time; a malformed dispatch is logged and dropped.
func (w *Worker) Start(ctx context.Context) error {
	ch, unsub, err := w.Subscriber.Subscribe(events.TopicJobDispatch)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.unsub = unsub
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx, ch)
	}()
	w.logger().Info("worker started", "topic", events.TopicJobDispatch)
	return nil
}

func (w *Worker) loop(ctx context.Context, ch <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, data)
		}
	}
}

func (w *Worker) handle(ctx context.Context, data []byte) {
	var dispatch events.JobDispatch
	if err := json.Unmarshal(data, &dispatch); err != nil {
		w.logger().Warn("dropping malformed dispatch", "err", err)
		return
	}
	if dispatch.JobID == "" || dispatch.OutDir == "" {
		w.logger().Warn("dropping incomplete dispatch", "job_id", dispatch.JobID, "out_dir", dispatch.OutDir)
		return
	}

	if err := w.Runner.RunJob(ctx, dispatch.JobID, dispatch.OutDir); err != nil {
		// RunJob already reported the failure to the server.
		w.logger().Error("dispatched job failed", "job_id", dispatch.JobID, "err", err)
	}
}

// Stop cancels processing, unsubscribes, and waits for the in-flight job to
// finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, unsub := w.cancel, w.unsub
	w.cancel, w.unsub = nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	w.wg.Wait()
	w.logger().Info("worker stopped")
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
