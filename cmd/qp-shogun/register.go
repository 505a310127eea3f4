package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/qiita-spots/qp-shogun/internal/config"
	"github.com/qiita-spots/qp-shogun/internal/qiita"
	"github.com/qiita-spots/qp-shogun/internal/registry/postgres"
)

var (
	registerServer string
	clientID       string
	clientSecret   string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the plugin and its commands with a Qiita server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if registerServer == "" {
			registerServer = cfg.ServerURL
		}
		if registerServer == "" {
			return fmt.Errorf("no server: set QP_SHOGUN_SERVER_URL or pass --server")
		}
		if clientID == "" || clientSecret == "" {
			return fmt.Errorf("--client-id and --client-secret are required")
		}

		ctx := cmd.Context()
		if err := registerPlugin(ctx, registerServer, clientID, clientSecret); err != nil {
			return err
		}

		creds := config.Credentials{
			ServerURL:    registerServer,
			ClientID:     clientID,
			ClientSecret: clientSecret,
		}
		if err := config.SaveCredentials(cfg.ConfigFP, creds); err != nil {
			return fmt.Errorf("saving credentials to %s: %w", cfg.ConfigFP, err)
		}
		slog.Info("credentials saved", "path", cfg.ConfigFP)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerServer, "server", "", "Qiita server URL (default QP_SHOGUN_SERVER_URL)")
	registerCmd.Flags().StringVar(&clientID, "client-id", "", "oauth client id issued by the Qiita server")
	registerCmd.Flags().StringVar(&clientSecret, "client-secret", "", "oauth client secret issued by the Qiita server")
}

// registerPlugin registers the plugin with Qiita and mirrors the
// registration into the Postgres registry when one is configured.
func registerPlugin(ctx context.Context, serverURL, id, secret string) error {
	opts := []qiita.Option{qiita.WithCredentials(id, secret)}
	if cfg.ServerCert != "" {
		opts = append(opts, qiita.WithServerCert(cfg.ServerCert))
	}
	client := qiita.NewClient(serverURL, opts...)
	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticating with %s: %w", serverURL, err)
	}

	plugin := pluginDefinition()
	if err := client.RegisterPlugin(ctx, plugin); err != nil {
		return fmt.Errorf("registering plugin: %w", err)
	}
	slog.Info("plugin registered", "name", plugin.Name, "version", plugin.Version,
		"commands", plugin.CommandNames())

	if cfg.DatabaseURL == "" {
		return nil
	}
	store, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer store.Close()
	if err := store.UpsertPlugin(ctx, plugin); err != nil {
		return fmt.Errorf("mirroring registration: %w", err)
	}
	slog.Info("registration mirrored into registry")
	return nil
}
