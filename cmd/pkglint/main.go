// pkglint validates a game package directory against the manifest contract
// before upload: the same checks the Developer Gateway runs server-side.
package main

import (
	"fmt"
	"os"

	"github.com/openlobby/openlobby/internal/gamepkg"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <package-dir>\n", os.Args[0])
		os.Exit(2)
	}
	dir := os.Args[1]

	manifest, err := gamepkg.Validate(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid package: %v\n", err)
		os.Exit(1)
	}

	files, err := gamepkg.ListFiles(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "walking package: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ok: %s v%s (%d-%d players, %d files)\n",
		manifest.Name, manifest.Version, manifest.MinPlayers, manifest.MaxPlayers, len(files))
	fmt.Printf("  server: %s %s\n", manifest.Server.StartCommand, manifest.Server.EntryPoint)
	fmt.Printf("  client: %s %s\n", manifest.Client.StartCommand, manifest.Client.EntryPoint)
}
