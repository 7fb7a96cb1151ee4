package config

import "github.com/openlobby/openlobby/internal/constants"

// Lobby holds all configuration for the Lobby/Matchmaker daemon.
type Lobby struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// AdvertiseHost is the hostname returned to clients as the game-server
	// address, independent of the lobby's own bind address.
	AdvertiseHost string `yaml:"advertise_host"`

	// Catalog connection
	CatalogHost string `yaml:"catalog_host"`
	CatalogPort int    `yaml:"catalog_port"`

	// Package store and game-server logs
	UploadDir string `yaml:"upload_dir"`
	LogsDir   string `yaml:"logs_dir"`

	// Game server port range (inclusive)
	GamePortMin int `yaml:"game_port_min"`
	GamePortMax int `yaml:"game_port_max"`

	LogLevel string `yaml:"log_level"`
}

// DefaultLobby returns Lobby config with sensible defaults.
func DefaultLobby() Lobby {
	return Lobby{
		BindAddress:   "0.0.0.0",
		Port:          constants.DefaultLobbyPort,
		AdvertiseHost: "localhost",
		CatalogHost:   "127.0.0.1",
		CatalogPort:   constants.DefaultCatalogPort,
		UploadDir:     constants.DefaultUploadDir,
		LogsDir:       constants.DefaultLogsDir,
		GamePortMin:   constants.GamePortMin,
		GamePortMax:   constants.GamePortMax,
		LogLevel:      "info",
	}
}

// LoadLobby loads lobby config from a YAML file.
func LoadLobby(path string) (Lobby, error) {
	cfg := DefaultLobby()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
