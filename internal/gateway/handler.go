package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openlobby/openlobby/internal/auth"
	"github.com/openlobby/openlobby/internal/constants"
	"github.com/openlobby/openlobby/internal/model"
	"github.com/openlobby/openlobby/internal/protocol"
)

func (s *Server) handleRegister(ctx context.Context, req protocol.Message) protocol.Message {
	username := strings.TrimSpace(req.Str("username"))
	password := strings.TrimSpace(req.Str("password"))
	if username == "" || password == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Username and password required")
	}

	existing, err := s.repo.FindUser(ctx, username, constants.AccountDeveloper)
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
		AccountType:  constants.AccountDeveloper,
	}); err != nil {
		slog.Error("register insert failed", "username", username, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Registration failed")
	}

	slog.Info("developer registered", "username", username)
	return protocol.OKMsg("Developer account created")
}

func (s *Server) handleLogin(ctx context.Context, sess *session, req protocol.Message) protocol.Message {
	username := strings.TrimSpace(req.Str("username"))
	password := strings.TrimSpace(req.Str("password"))
	if username == "" || password == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Username and password required")
	}

	user, err := s.repo.FindUser(ctx, username, constants.AccountDeveloper)
	if err != nil {
		slog.Error("login lookup failed", "username", username, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Login failed")
	}
	if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
		return protocol.Fail(protocol.ErrInvalidCredentials, "Invalid username or password")
	}

	sess.loggedIn = true
	sess.userID = user.ID
	sess.username = user.Username

	slog.Info("developer logged in", "username", username)
	return protocol.OKMsg(fmt.Sprintf("Welcome %s!", username))
}

func (s *Server) handleMyGames(ctx context.Context, sess *session) protocol.Message {
	games, err := s.repo.ListGamesByDeveloper(ctx, sess.userID)
	if err != nil {
		slog.Error("my_games failed", "developer", sess.username, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to fetch games")
	}
	return protocol.OK().With("games", games)
}

func (s *Server) handleRemoveGame(ctx context.Context, sess *session, req protocol.Message) protocol.Message {
	gameName := strings.TrimSpace(req.Str("game_name"))
	if gameName == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Game name required")
	}

	game, err := s.repo.FindOwnedGame(ctx, gameName, sess.userID)
	if err != nil {
		slog.Error("remove_game lookup failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to remove game")
	}
	if game == nil {
		return protocol.Fail(protocol.ErrNotOwner, "Game not found or you do not own it")
	}

	if err := s.repo.UpdateGame(ctx, game.ID, map[string]any{"status": constants.GameRemoved}); err != nil {
		slog.Error("remove_game update failed", "game", gameName, "err", err)
		return protocol.Fail(protocol.ErrInternal, "Failed to remove game")
	}

	slog.Info("game delisted", "game", gameName, "developer", sess.username)
	return protocol.OKMsg(fmt.Sprintf("Game %q removed from store", gameName))
}
