package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/openlobby/openlobby/internal/constants"
	"github.com/openlobby/openlobby/internal/gamepkg"
	"github.com/openlobby/openlobby/internal/model"
	"github.com/openlobby/openlobby/internal/protocol"
)

// handleUploadGame ingests a brand-new game package. The conversation after
// the initial request: ready message, then {file_count}, then per file a
// {path,size} message followed by a file frame.
func (s *Server) handleUploadGame(ctx context.Context, pc *protocol.Conn, sess *session, req protocol.Message) (protocol.Message, error) {
	gameName := strings.TrimSpace(req.Str("game_name"))
	if gameName == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name required"), nil
	}

	// Name conflicts are checked across every status: a removed game still
	// reserves its name.
	existing, err := s.repo.FindGameByName(ctx, gameName)
	if err != nil {
		slog.Error("upload_game lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to check game name"), nil
	}
	if existing != nil {
		return protocol.Fail(protocol.ErrDuplicateName, "Game name already exists"), nil
	}

	if err := pc.WriteMessage(protocol.OKMsg("Ready to receive files")); err != nil {
		return nil, err
	}

	stagingDir, manifest, failResp, err := s.receivePackage(pc)
	if err != nil || failResp != nil {
		return failResp, err
	}
	defer os.RemoveAll(stagingDir)

	finalName := fmt.Sprintf("%s_%s", gameName, manifest.Version)
	if err := s.promote(stagingDir, finalName); err != nil {
		slog.Error("package promotion failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to store game files"), nil
	}

	gameID, err := s.repo.CreateGame(ctx, &model.Game{
		Name:          gameName,
		DeveloperID:   sess.userID,
		DeveloperName: sess.username,
		LatestVersion: manifest.Version,
		Description:   manifest.Description,
		MinPlayers:    manifest.MinPlayers,
		MaxPlayers:    manifest.MaxPlayers,
		Status:        constants.GameActive,
	})
	if err != nil {
		slog.Error("game insert failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to save game to database"), nil
	}
	if _, err := s.repo.CreateVersion(ctx, &model.Version{
		GameID:   gameID,
		Version:  manifest.Version,
		FilePath: finalName,
	}); err != nil {
		slog.Error("version insert failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to save game version"), nil
	}

	slog.Info("game uploaded", "game", gameName, "version", manifest.Version, "developer", sess.username)
	return protocol.OKMsg(fmt.Sprintf("Game %q v%s uploaded successfully", gameName, manifest.Version)), nil
}

// handleUpdateGame ingests a new version of an existing game owned by the
// caller. Prior version directories are retained.
func (s *Server) handleUpdateGame(ctx context.Context, pc *protocol.Conn, sess *session, req protocol.Message) (protocol.Message, error) {
	gameName := strings.TrimSpace(req.Str("game_name"))
	if gameName == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name required"), nil
	}

	game, err := s.repo.FindOwnedGame(ctx, gameName, sess.userID)
	if err != nil {
		slog.Error("update_game lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to check game"), nil
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotOwner, "Game not found or you do not own it"), nil
	}

	if err := pc.WriteMessage(protocol.OKMsg("Ready to receive files")); err != nil {
		return nil, err
	}

	stagingDir, manifest, failResp, err := s.receivePackage(pc)
	if err != nil || failResp != nil {
		return failResp, err
	}
	defer os.RemoveAll(stagingDir)

	finalName := fmt.Sprintf("%s_%s", gameName, manifest.Version)
	if err := s.promote(stagingDir, finalName); err != nil {
		slog.Error("package promotion failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to store game files"), nil
	}

	if err := s.repo.UpdateGame(ctx, game.ID, map[string]any{
		"latest_version": manifest.Version,
		"description":    manifest.Description,
		"min_players":    manifest.MinPlayers,
		"max_players":    manifest.MaxPlayers,
	}); err != nil {
		slog.Error("game update failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to update game"), nil
	}

	// Re-uploading the same version replaces its files; only a genuinely
	// new version gets a new row, keeping one Version per version string.
	existingVersion, err := s.repo.FindVersion(ctx, game.ID, manifest.Version)
	if err != nil {
		slog.Error("version lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to save game version"), nil
	}
	if existingVersion == nil {
		if _, err := s.repo.CreateVersion(ctx, &model.Version{
			GameID:   game.ID,
			Version:  manifest.Version,
			FilePath: finalName,
		}); err != nil {
			slog.Error("version insert failed", "game", gameName, "err", err)
			return protocol.Fail(protocol.ErrInternal, "Failed to save game version"), nil
		}
	}

	slog.Info("game updated", "game", gameName, "version", manifest.Version, "developer", sess.username)
	return protocol.OKMsg(fmt.Sprintf("Game %q updated to v%s", gameName, manifest.Version)), nil
}

// receivePackage stages the client's file stream into a fresh temporary
// directory and validates it. On an application-level failure the staging
// directory is purged and a failure response is returned; a non-nil error
// is a transport fault.
func (s *Server) receivePackage(pc *protocol.Conn) (stagingDir string, m *gamepkg.Manifest, failResp protocol.Message, err error) {
	countMsg, err := pc.ReadMessage()
	if err != nil {
		return "", nil, nil, err
	}
	fileCount := countMsg.Int("file_count")
	if fileCount <= 0 {
		return "", nil, protocol.Fail(protocol.ErrInvalidPackage, "No files to upload"), nil
	}

	stagingDir = filepath.Join(s.cfg.UploadDir, "temp_"+uuid.NewString()[:8])
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", nil, protocol.Fail(protocol.ErrInternal, "Failed to stage upload"), nil
	}
	purge := func() { os.RemoveAll(stagingDir) }

	for i := 0; i < fileCount; i++ {
		info, err := pc.ReadMessage()
		if err != nil {
			purge()
			return "", nil, nil, err
		}
		relPath := info.Str("path")
		if !gamepkg.SafeRelPath(relPath) {
			purge()
			return "", nil, protocol.Fail(protocol.ErrInvalidPackage, fmt.Sprintf("Invalid file path: %s", relPath)), nil
		}
		dest := filepath.Join(stagingDir, filepath.FromSlash(relPath))
		if err := pc.ReceiveFile(dest); err != nil {
			purge()
			return "", nil, nil, err
		}
	}

	manifest, verr := gamepkg.Validate(stagingDir)
	if verr != nil {
		purge()
		return "", nil, protocol.Fail(protocol.ErrInvalidPackage, fmt.Sprintf("Invalid game package: %v", verr)), nil
	}
	return stagingDir, manifest, nil, nil
}

// promote atomically moves a validated staging directory to its final name
// under the upload dir, replacing any previous contents of that name.
func (s *Server) promote(stagingDir, finalName string) error {
	finalDir := filepath.Join(s.cfg.UploadDir, finalName)
	if err := os.RemoveAll(finalDir); err != nil {
		return fmt.Errorf("clearing %s: %w", finalDir, err)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return fmt.Errorf("promoting %s: %w", finalDir, err)
	}
	return nil
}
