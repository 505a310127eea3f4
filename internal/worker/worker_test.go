package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/qiita-spots/qp-shogun/internal/events"
	"github.com/qiita-spots/qp-shogun/internal/model"
	"github.com/qiita-spots/qp-shogun/internal/qiita"
	"github.com/qiita-spots/qp-shogun/internal/task"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// recordingServer implements task.Server and signals when a job completes.
type recordingServer struct {
	mu        sync.Mutex
	completed chan string
	success   bool
}

func newRecordingServer() *recordingServer {
	return &recordingServer{completed: make(chan string, 4)}
}

func (s *recordingServer) GetArtifact(ctx context.Context, id string) (*qiita.Artifact, error) {
	return &qiita.Artifact{}, nil
}

func (s *recordingServer) GetPrepTemplate(ctx context.Context, id int) (*qiita.PrepTemplate, error) {
	return &qiita.PrepTemplate{}, nil
}

func (s *recordingServer) GetJob(ctx context.Context, jobID string) (*qiita.JobInfo, error) {
	return &qiita.JobInfo{Command: "Kraken v2"}, nil
}

func (s *recordingServer) UpdateJobStep(ctx context.Context, jobID, msg string) error {
	return nil
}

func (s *recordingServer) CompleteJob(ctx context.Context, jobID string, success bool, artifacts []model.ArtifactInfo, errMsg string) error {
	s.mu.Lock()
	s.success = success
	s.mu.Unlock()
	s.completed <- jobID
	return nil
}

func TestWorker_RunsDispatchedJob(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	srv := newRecordingServer()
	w := &Worker{
		Runner:     &task.Runner{Server: srv},
		Subscriber: sub,
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	dispatch := events.JobDispatch{JobID: "job-1", OutDir: t.TempDir()}
	if err := pub.Publish(context.Background(), events.TopicJobDispatch, dispatch); err != nil {
		t.Fatalf("publishing dispatch: %v", err)
	}

	select {
	case jobID := <-srv.completed:
		if jobID != "job-1" {
			t.Errorf("completed job = %q", jobID)
		}
		// The recording server hands out an unknown command, so the runner
		// must complete the job as failed.
		srv.mu.Lock()
		defer srv.mu.Unlock()
		if srv.success {
			t.Error("job with unknown command completed as success")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the dispatched job")
	}
}

func TestWorker_DropsMalformedDispatch(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	srv := newRecordingServer()
	w := &Worker{
		Runner:     &task.Runner{Server: srv},
		Subscriber: sub,
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	// Missing out_dir: must be dropped without touching the server.
	if err := pub.Publish(context.Background(), events.TopicJobDispatch,
		events.JobDispatch{JobID: "job-2"}); err != nil {
		t.Fatalf("publishing dispatch: %v", err)
	}

	select {
	case jobID := <-srv.completed:
		t.Fatalf("incomplete dispatch ran job %q", jobID)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	url := startTestNATS(t)

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	w := &Worker{
		Runner:     &task.Runner{Server: newRecordingServer()},
		Subscriber: sub,
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	w.Stop()
	w.Stop()
}
