package provision

import (
	"log/slog"
	"os"
)

// Teardown removes the given directories, typically the staged reference
// database trees of a throwaway environment. Best effort: failures are
// logged and do not abort, so teardown can always run on both success and
// failure paths.
func Teardown(dirs []string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("teardown failed to remove directory", "dir", dir, "err", err)
			continue
		}
		logger.Info("removed", "dir", dir)
	}
}
