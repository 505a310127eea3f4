package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Credentials holds the oauth client this plugin registered with a Qiita
// server. Written by `qp-shogun register`, read before running jobs.
type Credentials struct {
	ServerURL    string `toml:"server_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// LoadCredentials reads the credentials file at path.
func LoadCredentials(path string) (Credentials, error) {
	var c Credentials
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, fmt.Errorf("no credentials at %s (run `qp-shogun register` first)", path)
		}
		return Credentials{}, err
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return Credentials{}, fmt.Errorf("credentials file %s is missing client_id or client_secret", path)
	}
	return c, nil
}

// SaveCredentials writes the credentials file at path with owner-only
// permissions, creating parent directories as needed.
func SaveCredentials(path string, c Credentials) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
