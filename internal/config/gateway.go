package config

import "github.com/openlobby/openlobby/internal/constants"

// Gateway holds all configuration for the Developer Gateway daemon.
type Gateway struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Catalog connection
	CatalogHost string `yaml:"catalog_host"`
	CatalogPort int    `yaml:"catalog_port"`

	// Package store
	UploadDir string `yaml:"upload_dir"`

	LogLevel string `yaml:"log_level"`
}

// DefaultGateway returns Gateway config with sensible defaults.
func DefaultGateway() Gateway {
	return Gateway{
		BindAddress: "0.0.0.0",
		Port:        constants.DefaultGatewayPort,
		CatalogHost: "127.0.0.1",
		CatalogPort: constants.DefaultCatalogPort,
		UploadDir:   constants.DefaultUploadDir,
		LogLevel:    "info",
	}
}

// LoadGateway loads gateway config from a YAML file.
func LoadGateway(path string) (Gateway, error) {
	cfg := DefaultGateway()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
