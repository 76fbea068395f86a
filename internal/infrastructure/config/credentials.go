package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Credentials are the persisted sync service login details.
type Credentials struct {
	URL      string `yaml:"url" toml:"url"`
	Password string `yaml:"password" toml:"password"`
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("credentials file %s: unsupported extension (want .yaml, .yml or .toml)", path)
	}
}

// LoadCredentials reads a YAML or TOML credentials file, chosen by extension.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials

	f, err := formatOf(path)
	if err != nil {
		return creds, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}

	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, &creds)
	case formatTOML:
		err = toml.Unmarshal(data, &creds)
	}
	if err != nil {
		return creds, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return creds, nil
}

// SaveCredentials writes creds readable only by the owner.
func SaveCredentials(path string, creds Credentials) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(creds)
	case formatTOML:
		data, err = toml.Marshal(creds)
	}
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credentials dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
