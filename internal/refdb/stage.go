package refdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Archive names one reference database bundle: where to get it and where it
// must end up.
type Archive struct {
	// Source is the S3 object key when a fetcher is configured, otherwise a
	// local archive path.
	Source string
	// Dest is the directory the archive extracts into.
	Dest string
}

// Stage makes each archive's destination directory available, fetching and
// extracting as needed. A destination that already holds files is left
// untouched, so re-provisioning the same host is cheap.
func Stage(ctx context.Context, fetcher *Fetcher, archives []Archive, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, a := range archives {
		if populated(a.Dest) {
			logger.Info("reference database already staged", "dest", a.Dest)
			continue
		}

		archivePath := a.Source
		if fetcher != nil {
			tmp, err := os.CreateTemp("", "refdb-*.tar.gz")
			if err != nil {
				return fmt.Errorf("creating staging file: %w", err)
			}
			tmp.Close()
			defer os.Remove(tmp.Name())

			logger.Info("fetching reference database", "key", a.Source, "dest", a.Dest)
			if err := fetcher.Fetch(ctx, a.Source, tmp.Name()); err != nil {
				return err
			}
			archivePath = tmp.Name()
		}

		logger.Info("extracting reference database", "archive", filepath.Base(a.Source), "dest", a.Dest)
		if err := ExtractTarGz(archivePath, a.Dest); err != nil {
			return err
		}
	}
	return nil
}

// populated reports whether dir exists and contains at least one entry.
func populated(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
