// Package config holds the YAML configuration of the three platform
// daemons. Every Load function returns defaults when the file is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openlobby/openlobby/internal/constants"
)

// Catalog holds all configuration for the Catalog Store daemon. The store
// is internal infrastructure and binds to localhost by default.
type Catalog struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	DataDir     string `yaml:"data_dir"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultCatalog returns Catalog config with sensible defaults.
func DefaultCatalog() Catalog {
	return Catalog{
		BindAddress: "127.0.0.1",
		Port:        constants.DefaultCatalogPort,
		DataDir:     constants.DefaultDataDir,
		LogLevel:    "info",
	}
}

// LoadCatalog loads catalog config from a YAML file.
func LoadCatalog(path string) (Catalog, error) {
	cfg := DefaultCatalog()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
