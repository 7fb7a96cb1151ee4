package gamepkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openlobby/openlobby/internal/constants"
)

// Validate checks a package directory against the manifest contract and
// returns the parsed manifest. The returned error text is the first
// violation found, suitable for sending to the uploading client verbatim.
func Validate(dir string) (*Manifest, error) {
	infoPath := filepath.Join(dir, constants.ManifestFileName)
	data, err := os.ReadFile(infoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("Missing game_info.json")
		}
		return nil, fmt.Errorf("Cannot read game_info.json: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("Invalid JSON in game_info.json: %v", err)
	}

	for _, field := range []string{"name", "version", "description", "min_players", "max_players"} {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("Missing required field: %s", field)
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("Invalid JSON in game_info.json: %v", err)
	}

	if _, ok := raw["server"]; !ok {
		return nil, errors.New("Missing 'server' configuration")
	}
	if m.Server.EntryPoint == "" {
		return nil, errors.New("Missing server.entry_point")
	}
	if !entryPointExists(dir, m.Server.EntryPoint) {
		return nil, fmt.Errorf("Server entry point not found: %s", m.Server.EntryPoint)
	}

	if _, ok := raw["client"]; !ok {
		return nil, errors.New("Missing 'client' configuration")
	}
	if m.Client.EntryPoint == "" {
		return nil, errors.New("Missing client.entry_point")
	}
	if !entryPointExists(dir, m.Client.EntryPoint) {
		return nil, fmt.Errorf("Client entry point not found: %s", m.Client.EntryPoint)
	}

	return &m, nil
}

// entryPointExists requires the entry point to resolve to a regular file
// that stays inside the package directory.
func entryPointExists(dir, entry string) bool {
	if !SafeRelPath(entry) {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(entry)))
	return err == nil && info.Mode().IsRegular()
}

// SafeRelPath reports whether p is a relative slash-path that cannot escape
// its root. Used for entry points and for staged upload paths.
func SafeRelPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return false
	}
	return true
}
