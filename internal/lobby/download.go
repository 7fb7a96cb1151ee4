package lobby

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openlobby/openlobby/internal/gamepkg"
	"github.com/openlobby/openlobby/internal/protocol"
)

// handleDownloadGame streams the latest version of a game to the client:
// the inversion of upload. The initial response, a file count, then per
// file a {path,size} message followed by the file frame. Returns a nil
// response when the stream already carried it.
func (s *Server) handleDownloadGame(ctx context.Context, pc *protocol.Conn, req protocol.Message) (protocol.Message, error) {
	gameName := req.Str("game_name")
	if gameName == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name required"), nil
	}

	game, err := s.repo.FindActiveGameByName(ctx, gameName)
	if err != nil {
		slog.Error("download lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch game"), nil
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotFound, "Game not found"), nil
	}

	ver, err := s.repo.FindVersion(ctx, game.ID, game.LatestVersion)
	if err != nil {
		slog.Error("download version lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch game version"), nil
	}
	if ver == nil {
		return protocol.Fail(protocol.ErrNotFound, "Version not found"), nil
	}

	gameDir := filepath.Join(s.cfg.UploadDir, ver.FilePath)
	if _, err := os.Stat(gameDir); err != nil {
		slog.Error("package directory missing", "game", gameName, "dir", gameDir)
		return protocol.Fail(protocol.ErrNotFound, "Game files not found"), nil
	}

	files, err := gamepkg.ListFiles(gameDir)
	if err != nil {
		slog.Error("package walk failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to read game files"), nil
	}

	initial := protocol.OK().
		With("version", game.LatestVersion).
		With("message", fmt.Sprintf("Sending %d files...", len(files)))
	if err := pc.WriteMessage(initial); err != nil {
		return nil, err
	}
	if err := pc.WriteMessage(protocol.Message{"file_count": len(files)}); err != nil {
		return nil, err
	}

	for _, relPath := range files {
		fullPath := filepath.Join(gameDir, filepath.FromSlash(relPath))
		info, err := os.Stat(fullPath)
		if err != nil {
			return nil, fmt.Errorf("stating %s: %w", fullPath, err)
		}
		if err := pc.WriteMessage(protocol.Message{"path": relPath, "size": info.Size()}); err != nil {
			return nil, err
		}
		if err := pc.SendFile(fullPath); err != nil {
			return nil, err
		}
	}

	slog.Info("package downloaded", "game", gameName, "version", game.LatestVersion, "files", len(files))
	return nil, nil
}
