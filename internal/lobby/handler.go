package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/openlobby/openlobby/internal/auth"
	"github.com/openlobby/openlobby/internal/constants"
	"github.com/openlobby/openlobby/internal/gamepkg"
	"github.com/openlobby/openlobby/internal/model"
	"github.com/openlobby/openlobby/internal/protocol"
)

func (s *Server) handleRegister(ctx context.Context, req protocol.Message) protocol.Message {
	username := strings.TrimSpace(req.Str("username"))
	password := strings.TrimSpace(req.Str("password"))
	if username == "" || password == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Username and password required")
	}

	existing, err := s.repo.FindUser(ctx, username, constants.AccountPlayer)
	if err != nil {
		slog.Error("register lookup failed", "username", username, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Registration failed")
	}
	if existing != nil {
		return protocol.Fail(protocol.ErrDuplicateUser, "Username already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("password hashing failed", "err", err)
		return protocol.Fail(protocol.ErrInternal, "Registration failed")
	}

	if _, err := s.repo.CreateUser(ctx, &model.User{
		Username:     username,
		PasswordHash: hash,
		AccountType:  constants.AccountPlayer,
	}); err != nil {
		slog.Error("register insert failed", "username", username, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Registration failed")
	}

	slog.Info("player registered", "username", username)
	return protocol.OKMsg("Player account created")
}

func (s *Server) handleLogin(ctx context.Context, sess *session, req protocol.Message) protocol.Message {
	username := strings.TrimSpace(req.Str("username"))
	password := strings.TrimSpace(req.Str("password"))
	if username == "" || password == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Username and password required")
	}

	user, err := s.repo.FindUser(ctx, username, constants.AccountPlayer)
	if err != nil {
		slog.Error("login lookup failed", "username", username, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Login failed")
	}
	if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
		return protocol.Fail(protocol.ErrInvalidCredentials, "Invalid username or password")
	}

	// A connection re-logging-in sheds its previous identity first.
	if sess.loggedIn {
		s.mm.RemoveSession(sess.userID)
		*sess = session{}
	}

	if err := s.mm.AddSession(user.ID, user.Username); err != nil {
		return protocol.Fail(protocol.ErrAlreadyLoggedIn, "Account already logged in")
	}

	sess.loggedIn = true
	sess.userID = user.ID
	sess.username = user.Username

	slog.Info("player logged in", "username", username)
	return protocol.OKMsg(fmt.Sprintf("Welcome %s!", username))
}

func (s *Server) handleListGames(ctx context.Context) protocol.Message {
	games, err := s.repo.ListActiveGames(ctx)
	if err != nil {
		slog.Error("list_games failed", "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch games")
	}
	return protocol.OK().With("games", games)
}

func (s *Server) handleGameInfo(ctx context.Context, req protocol.Message) protocol.Message {
	gameName := req.Str("game_name")
	if gameName == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name required")
	}

	game, err := s.repo.FindActiveGameByName(ctx, gameName)
	if err != nil {
		slog.Error("game_info lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch game")
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotFound, "Game not found")
	}

	reviews, err := s.repo.ListReviews(ctx, game.ID)
	if err != nil {
		slog.Warn("review lookup failed", "game", gameName, "err", err)
		reviews = nil
	}

	avg := 0.0
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		avg = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}

	shown := reviews
	if len(shown) > 10 {
		shown = shown[:10]
	}

	return protocol.OK().
		With("game", game).
		With("reviews", shown).
		With("avg_rating", avg).
		With("review_count", len(reviews))
}

func (s *Server) handleSubmitReview(ctx context.Context, sess *session, req protocol.Message) protocol.Message {
	gameName := req.Str("game_name")
	if gameName == "" || !req.Has("rating") {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name and rating required")
	}
	rating := req.Int("rating")
	if rating < 1 || rating > 5 {
		return protocol.Fail(protocol.ErrInvalidRequest, "Rating must be 1-5")
	}

	// Reviews are accepted for delisted games too: players who bought in
	// can still rate.
	game, err := s.repo.FindGameByName(ctx, gameName)
	if err != nil {
		slog.Error("submit_review lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to submit review")
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotFound, "Game not found")
	}

	if _, err := s.repo.CreateReview(ctx, &model.Review{
		GameID:     game.ID,
		PlayerID:   sess.userID,
		PlayerName: sess.username,
		Rating:     rating,
		Comment:    req.Str("comment"),
	}); err != nil {
		slog.Error("review insert failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to submit review")
	}
	return protocol.OKMsg("Review submitted")
}

func (s *Server) handleCreateRoom(ctx context.Context, sess *session, req protocol.Message) protocol.Message {
	gameName := req.Str("game_name")
	if gameName == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name required")
	}

	game, err := s.repo.FindActiveGameByName(ctx, gameName)
	if err != nil {
		slog.Error("create_room lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch game")
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotFound, "Game not found")
	}

	roomID := s.mm.CreateRoom(sess.userID, sess.username, game)
	slog.Info("room created", "room", roomID, "game", gameName, "host", sess.username)
	return protocol.OK().
		With("room_id", roomID).
		With("message", fmt.Sprintf("Room created for %s", gameName)).
		With("is_host", true)
}

func (s *Server) handleJoinRoom(sess *session, req protocol.Message) protocol.Message {
	roomID := req.Str("room_id")
	if roomID == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Room ID required")
	}

	gameName, err := s.mm.JoinRoom(sess.userID, roomID)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return protocol.Fail(protocol.ErrRoomNotFound, "Room not found")
	case errors.Is(err, ErrRoomBusy):
		return protocol.Fail(protocol.ErrRoomBusy, "Room is not accepting players")
	case errors.Is(err, ErrRoomFull):
		return protocol.Fail(protocol.ErrRoomFull, "Room is full")
	}

	slog.Info("player joined room", "room", roomID, "username", sess.username)
	return protocol.OK().
		With("room_id", roomID).
		With("game_name", gameName).
		With("is_host", false)
}

func (s *Server) handleLeaveRoom(sess *session) protocol.Message {
	if err := s.mm.LeaveRoom(sess.userID); err != nil {
		return protocol.Fail(protocol.ErrNotInRoom, "Not in any room")
	}
	return protocol.OKMsg("Left room")
}

// handleStartGame runs the two locked phases of the room start transition
// with the Catalog consultation and manifest read in between, outside the
// matchmaker lock.
func (s *Server) handleStartGame(ctx context.Context, sess *session) protocol.Message {
	sc, err := s.mm.BeginStart(sess.userID)
	if err != nil {
		return startFail(err)
	}

	// Float the room to the current latest_version.
	game, err := s.repo.FindActiveGameByID(ctx, sc.GameID)
	if err != nil {
		slog.Error("start_game game lookup failed", "room", sc.RoomID, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch game")
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotFound, "Game not found")
	}

	ver, err := s.repo.FindVersion(ctx, sc.GameID, game.LatestVersion)
	if err != nil {
		slog.Error("start_game version lookup failed", "room", sc.RoomID, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch game version")
	}
	if ver == nil {
		return protocol.Fail(protocol.ErrNotFound, "Game version not found")
	}

	pkgDir := filepath.Join(s.cfg.UploadDir, ver.FilePath)
	manifest, err := gamepkg.ReadManifest(pkgDir)
	if err != nil {
		slog.Error("start_game manifest read failed", "room", sc.RoomID, "dir", pkgDir, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to read game manifest")
	}

	port, err := s.mm.Launch(sess.userID, game.LatestVersion, pkgDir, manifest)
	if err != nil {
		var crash *CrashError
		if errors.As(err, &crash) {
			slog.Warn("game server crashed on startup", "room", sc.RoomID, "exit_code", crash.ExitCode)
			return protocol.Fail(protocol.ErrGameServerCrashed,
				fmt.Sprintf("Game server crashed on startup (exit %d). Check server logs.", crash.ExitCode))
		}
		return startFail(err)
	}

	slog.Info("game server started", "room", sc.RoomID, "game", sc.GameName, "port", port, "version", game.LatestVersion)
	return protocol.OK().
		With("game_server", map[string]any{"host": s.cfg.AdvertiseHost, "port": port}).
		With("game_name", sc.GameName).
		With("version", game.LatestVersion)
}

func startFail(err error) protocol.Message {
	switch {
	case errors.Is(err, ErrNotInRoom):
		return protocol.Fail(protocol.ErrNotInRoom, "Not in any room")
	case errors.Is(err, ErrNotHost):
		return protocol.Fail(protocol.ErrNotHost, "Only host can start game")
	case errors.Is(err, ErrAlreadyStarted):
		return protocol.Fail(protocol.ErrAlreadyStarted, "Game already started")
	case errors.Is(err, ErrNoPortsAvailable):
		return protocol.Fail(protocol.ErrNoPortsAvailable, "No available ports")
	case errors.Is(err, ErrSpawnFailed):
		return protocol.Fail(protocol.ErrSpawnFailed, "Failed to start game server")
	default:
		slog.Error("start_game failed", "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to start game")
	}
}

func (s *Server) handleCheckGameStatus(sess *session) protocol.Message {
	st := s.mm.CheckStatus(sess.userID)
	if !st.InRoom || st.JustEnded {
		return protocol.OK().With("game_started", false)
	}

	resp := protocol.OK().
		With("game_started", st.GameStarted).
		With("room_id", st.RoomID).
		With("host_id", st.HostID).
		With("host_name", st.HostName).
		With("is_host", st.IsHost).
		With("status", st.RoomStatus)

	if st.GameStarted {
		resp.With("game_server", map[string]any{"host": s.cfg.AdvertiseHost, "port": st.Port}).
			With("game_name", st.GameName).
			With("version", st.Version)
	}
	return resp
}
