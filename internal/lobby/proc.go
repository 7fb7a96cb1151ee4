package lobby

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/openlobby/openlobby/internal/gamepkg"
)

// GameProcess supervises one spawned game-server subprocess. The merged
// stdout+stderr log handle is owned here and must be closed on every room
// transition out of in_game.
type GameProcess struct {
	cmd *exec.Cmd
	log *os.File

	mu       sync.Mutex
	exited   bool
	exitCode int

	logOnce sync.Once
}

// Spawn launches the game server described by the manifest, bound to port,
// with the package directory as working directory. Stdin is /dev/null;
// stdout and stderr are merged into logPath.
func Spawn(pkgDir string, manifest *gamepkg.Manifest, port, numPlayers int, logPath string) (*GameProcess, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating game log %s: %w", logPath, err)
	}

	startCommand := manifest.Server.StartCommand
	if startCommand == "" {
		startCommand = "python3"
	}
	entry := filepath.Join(pkgDir, filepath.FromSlash(manifest.Server.EntryPoint))
	args := gamepkg.SubstituteArgs(manifest.Server.Arguments, map[string]string{
		gamepkg.PlaceholderPort:       strconv.Itoa(port),
		gamepkg.PlaceholderNumPlayers: strconv.Itoa(numPlayers),
	})

	cmd := exec.Command(startCommand, append([]string{entry}, args...)...)
	cmd.Dir = pkgDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// Stdin left nil: the child reads from /dev/null.

	if err := cmd.Start(); err != nil {
		logFile.Close()
		os.Remove(logPath)
		return nil, fmt.Errorf("starting game server: %w", err)
	}

	p := &GameProcess{cmd: cmd, log: logFile}
	go p.reap()
	return p, nil
}

// reap waits for the child and records its exit state so Exited never
// blocks.
func (p *GameProcess) reap() {
	err := p.cmd.Wait()

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		code = -1
	}

	p.mu.Lock()
	p.exited = true
	p.exitCode = code
	p.mu.Unlock()
}

// Exited reports whether the child has terminated and, if so, its exit code.
func (p *GameProcess) Exited() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited, p.exitCode
}

// Terminate sends SIGTERM to a still-running child. Safe to call after
// exit.
func (p *GameProcess) Terminate() {
	p.mu.Lock()
	running := !p.exited
	p.mu.Unlock()
	if running && p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// CloseLog releases the log handle. Idempotent.
func (p *GameProcess) CloseLog() {
	p.logOnce.Do(func() {
		p.log.Close()
	})
}
