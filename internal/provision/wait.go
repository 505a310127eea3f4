package provision

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const dialInterval = 500 * time.Millisecond

// WaitForServices blocks until every addr (host:port) accepts a TCP
// connection, retrying until timeout. Replaces a fixed startup sleep with an
// actual readiness check.
func WaitForServices(ctx context.Context, addrs []string, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, addr := range addrs {
		start := time.Now()
		if err := waitForAddr(ctx, addr); err != nil {
			return fmt.Errorf("waiting for %s: %w", addr, err)
		}
		logger.Info("service ready", "addr", addr, "waited", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func waitForAddr(ctx context.Context, addr string) error {
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("not reachable: %w", ctx.Err())
		case <-time.After(dialInterval):
		}
	}
}
