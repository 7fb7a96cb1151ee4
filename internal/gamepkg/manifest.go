// Package gamepkg defines the game package contract: the game_info.json
// manifest, package validation, and file enumeration for upload/download.
package gamepkg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openlobby/openlobby/internal/constants"
)

// Manifest is the parsed game_info.json describing one game version and how
// to invoke its server and client executables.
type Manifest struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	MinPlayers  int        `json:"min_players"`
	MaxPlayers  int        `json:"max_players"`
	Server      LaunchSpec `json:"server"`
	Client      LaunchSpec `json:"client"`
}

// LaunchSpec describes how to launch one side of a game: interpreter or
// binary, entry point relative to the package root, and argument template.
type LaunchSpec struct {
	StartCommand string   `json:"start_command"`
	EntryPoint   string   `json:"entry_point"`
	Arguments    []string `json:"arguments"`
}

// Argument placeholders substituted at launch time. The server sees PORT and
// NUM_PLAYERS; the client sees HOST, PORT and USERNAME.
const (
	PlaceholderPort       = "{PORT}"
	PlaceholderNumPlayers = "{NUM_PLAYERS}"
	PlaceholderHost       = "{HOST}"
	PlaceholderUsername   = "{USERNAME}"
)

// SubstituteArgs expands placeholders in an argument template.
func SubstituteArgs(args []string, vars map[string]string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		for placeholder, value := range vars {
			arg = strings.ReplaceAll(arg, placeholder, value)
		}
		out[i] = arg
	}
	return out
}

// ReadManifest parses game_info.json from a package directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, constants.ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", constants.ManifestFileName, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", constants.ManifestFileName, err)
	}
	return &m, nil
}
