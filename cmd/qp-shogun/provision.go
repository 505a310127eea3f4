package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/qiita-spots/qp-shogun/internal/provision"
	"github.com/qiita-spots/qp-shogun/internal/refdb"
	"github.com/qiita-spots/qp-shogun/internal/registry"
	"github.com/qiita-spots/qp-shogun/internal/registry/postgres"
	"github.com/qiita-spots/qp-shogun/internal/shell"
)

var (
	provisionServices []string
	provisionTeardown bool
	provisionRegister bool
	filterArchive     string
	shogunArchive     string
	sortmernaArchive  string
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Prepare this host: wait for services, verify tools, stage reference databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		archives, err := provisionArchives()
		if err != nil {
			return err
		}

		var fetcher *refdb.Fetcher
		if cfg.RefDBS3Bucket != "" {
			fetcher, err = refdb.NewFetcher(ctx, cfg.RefDBS3Bucket, cfg.RefDBS3Region, cfg.RefDBS3Endpoint)
			if err != nil {
				return err
			}
		}

		var store registry.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening registry: %w", err)
			}
			defer pg.Close()
			store = pg
		}

		pub := newPublisher()
		defer pub.Close()

		p := &provision.Provisioner{
			Shell:     shell.Runner{},
			Services:  provisionServices,
			Wait:      cfg.ServiceWait,
			Archives:  archives,
			Fetcher:   fetcher,
			Store:     store,
			Publisher: pub,
			Logger:    slog.Default(),
			EnvPrefix: cfg.EnvPrefix,
		}
		if provisionRegister {
			p.Register = func(ctx context.Context) error {
				return registerPlugin(ctx, cfg.ServerURL, clientID, clientSecret)
			}
		}

		if provisionTeardown {
			defer provision.Teardown([]string{
				cfg.FilterDBDir, cfg.ShogunDBDir, cfg.SortMeRNADBDir,
			}, slog.Default())
		}

		run, err := p.Run(ctx)
		if run != nil {
			slog.Info("provisioning finished", "run_id", run.ID, "status", run.Status)
		}
		return err
	},
}

func init() {
	provisionCmd.Flags().StringSliceVar(&provisionServices, "wait-for", nil,
		"host:port addresses that must accept connections before provisioning")
	provisionCmd.Flags().BoolVar(&provisionTeardown, "teardown", false,
		"remove the staged reference databases when provisioning exits")
	provisionCmd.Flags().BoolVar(&provisionRegister, "register", false,
		"register the plugin with the Qiita server after verification")
	provisionCmd.Flags().StringVar(&filterArchive, "filter-archive", "",
		"archive (S3 key or local path) for the bowtie2 filter database")
	provisionCmd.Flags().StringVar(&shogunArchive, "shogun-archive", "",
		"archive (S3 key or local path) for the Shogun database")
	provisionCmd.Flags().StringVar(&sortmernaArchive, "sortmerna-archive", "",
		"archive (S3 key or local path) for the SortMeRNA references")
	provisionCmd.Flags().StringVar(&clientID, "client-id", "", "oauth client id (with --register)")
	provisionCmd.Flags().StringVar(&clientSecret, "client-secret", "", "oauth client secret (with --register)")
}

// provisionArchives pairs each archive flag with its destination directory
// from the environment.
func provisionArchives() ([]refdb.Archive, error) {
	var archives []refdb.Archive
	for _, pair := range []struct {
		source, dest, env string
	}{
		{filterArchive, cfg.FilterDBDir, "QC_FILTER_DB_DP"},
		{shogunArchive, cfg.ShogunDBDir, "QC_SHOGUN_DB_DP"},
		{sortmernaArchive, cfg.SortMeRNADBDir, "QC_SORTMERNA_DB_DP"},
	} {
		if pair.source == "" {
			continue
		}
		if pair.dest == "" {
			return nil, fmt.Errorf("archive %s given but %s is not set", pair.source, pair.env)
		}
		archives = append(archives, refdb.Archive{Source: pair.source, Dest: pair.dest})
	}
	return archives, nil
}
