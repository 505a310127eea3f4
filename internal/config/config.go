package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	ServerURL  string // QP_SHOGUN_SERVER_URL (required for server operations)
	ServerCert string // QIITA_SERVER_CERT (optional CA cert for the Qiita server)
	ConfigFP   string // QP_SHOGUN_CONFIG_FP (client credentials file)

	// Reference database directories, consumed by the task builders.
	FilterDBDir    string // QC_FILTER_DB_DP
	ShogunDBDir    string // QC_SHOGUN_DB_DP
	SortMeRNADBDir string // QC_SORTMERNA_DB_DP

	DatabaseURL string // QP_SHOGUN_DATABASE_URL (optional, empty = registry disabled)
	NATSURL     string // QP_SHOGUN_NATS_URL (optional, empty = no events)

	// Reference DB staging source (enables S3 fetch when bucket is set).
	RefDBS3Bucket   string // QP_SHOGUN_REFDB_S3_BUCKET
	RefDBS3Endpoint string // QP_SHOGUN_REFDB_S3_ENDPOINT (custom endpoint for MinIO)
	RefDBS3Region   string // QP_SHOGUN_REFDB_S3_REGION (default "us-east-1")

	EnvPrefix string // CONDA_PREFIX (active environment, informational)

	// ServiceWait bounds how long provisioning waits for addon services.
	ServiceWait time.Duration // QP_SHOGUN_SERVICE_WAIT (default 2m)
}

func Load() (*Config, error) {
	c := &Config{
		ServerURL:       os.Getenv("QP_SHOGUN_SERVER_URL"),
		ServerCert:      os.Getenv("QIITA_SERVER_CERT"),
		ConfigFP:        envOrDefault("QP_SHOGUN_CONFIG_FP", defaultConfigFP()),
		FilterDBDir:     os.Getenv("QC_FILTER_DB_DP"),
		ShogunDBDir:     os.Getenv("QC_SHOGUN_DB_DP"),
		SortMeRNADBDir:  os.Getenv("QC_SORTMERNA_DB_DP"),
		DatabaseURL:     os.Getenv("QP_SHOGUN_DATABASE_URL"),
		NATSURL:         os.Getenv("QP_SHOGUN_NATS_URL"),
		RefDBS3Bucket:   os.Getenv("QP_SHOGUN_REFDB_S3_BUCKET"),
		RefDBS3Endpoint: os.Getenv("QP_SHOGUN_REFDB_S3_ENDPOINT"),
		RefDBS3Region:   envOrDefault("QP_SHOGUN_REFDB_S3_REGION", "us-east-1"),
		EnvPrefix:       os.Getenv("CONDA_PREFIX"),
	}

	waitStr := envOrDefault("QP_SHOGUN_SERVICE_WAIT", "2m")
	d, err := time.ParseDuration(waitStr)
	if err != nil {
		return nil, fmt.Errorf("QP_SHOGUN_SERVICE_WAIT: %w", err)
	}
	c.ServiceWait = d

	return c, nil
}

// RequireServer errors unless a Qiita server URL is configured.
func (c *Config) RequireServer() error {
	if c.ServerURL == "" {
		return fmt.Errorf("QP_SHOGUN_SERVER_URL is required")
	}
	return nil
}

func defaultConfigFP() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "qp-shogun.toml"
	}
	return home + "/.qp-shogun.toml"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
