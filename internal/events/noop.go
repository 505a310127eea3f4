package events

import "context"

// NoopPublisher discards events; jobs run fine without a queue, progress
// then only reaches the Qiita server.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
