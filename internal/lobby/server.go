// Package lobby implements the Lobby/Matchmaker: player sessions, room
// lifecycle with host migration, allocation and supervision of per-room
// game-server subprocesses, and download streaming of game packages.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/openlobby/openlobby/internal/config"
	"github.com/openlobby/openlobby/internal/db"
	"github.com/openlobby/openlobby/internal/protocol"
)

// Server accepts player connections and serves the lobby protocol.
type Server struct {
	cfg  config.Lobby
	repo db.Repository
	mm   *Matchmaker

	listener net.Listener
	mu       sync.Mutex
}

// session is the per-connection player state.
type session struct {
	loggedIn bool
	userID   string
	username string
}

// NewServer creates a lobby and ensures the game-server log directory
// exists.
func NewServer(cfg config.Lobby, repo db.Repository) (*Server, error) {
	if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs dir %s: %w", cfg.LogsDir, err)
	}
	ports := NewPortAllocator(cfg.GamePortMin, cfg.GamePortMax)
	return &Server{
		cfg:  cfg,
		repo: repo,
		mm:   NewMatchmaker(ports, cfg.LogsDir),
	}, nil
}

// Matchmaker exposes the room/session state, for tests and diagnostics.
func (s *Server) Matchmaker() *Matchmaker {
	return s.mm
}

// Addr returns the listening address, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on cfg.BindAddress:cfg.Port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on a prepared listener. On shutdown every room
// is destroyed and every supervised game server terminated.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("lobby server started", "address", ln.Addr(), "advertise_host", s.cfg.AdvertiseHost)
	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Error("failed to accept connection", "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
	wg.Wait()
	s.mm.Shutdown()
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Info("player connected", "remote", conn.RemoteAddr())
	pc := protocol.NewConn(conn)
	sess := &session{}

	defer func() {
		// Disconnect is the only cancellation signal: the session and any
		// room membership go with it.
		if sess.loggedIn {
			s.mm.RemoveSession(sess.userID)
			slog.Info("player disconnected", "username", sess.username)
		}
	}()

	for {
		req, err := pc.ReadMessage()
		if err != nil {
			if err != io.EOF {
				slog.Warn("player connection dropped", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		resp, err := s.process(ctx, pc, sess, req)
		if err != nil {
			slog.Warn("player request aborted", "remote", conn.RemoteAddr(), "action", req.Str("action"), "err", err)
			return
		}
		if resp == nil {
			continue
		}
		if err := pc.WriteMessage(resp); err != nil {
			slog.Warn("lobby write failed", "remote", conn.RemoteAddr(), "err", err)
			return
		}
	}
}

// process dispatches one request. A returned error is a transport fault and
// tears the connection down.
func (s *Server) process(ctx context.Context, pc *protocol.Conn, sess *session, req protocol.Message) (protocol.Message, error) {
	action := req.Str("action")

	switch action {
	case "register":
		return s.handleRegister(ctx, req), nil
	case "login":
		return s.handleLogin(ctx, sess, req), nil
	}

	if !sess.loggedIn {
		return protocol.Fail(protocol.ErrAuthRequired, "Not logged in"), nil
	}

	switch action {
	case "list_games":
		return s.handleListGames(ctx), nil
	case "game_info":
		return s.handleGameInfo(ctx, req), nil
	case "download_game":
		return s.handleDownloadGame(ctx, pc, req)
	case "list_rooms":
		return protocol.OK().With("rooms", s.mm.ListRooms()), nil
	case "create_room":
		return s.handleCreateRoom(ctx, sess, req), nil
	case "join_room":
		return s.handleJoinRoom(sess, req), nil
	case "leave_room":
		return s.handleLeaveRoom(sess), nil
	case "start_game":
		return s.handleStartGame(ctx, sess), nil
	case "check_game_status":
		return s.handleCheckGameStatus(sess), nil
	case "end_game":
		return protocol.OKMsg(s.mm.EndGame(sess.userID)), nil
	case "submit_review":
		return s.handleSubmitReview(ctx, sess, req), nil
	case "logout":
		s.mm.RemoveSession(sess.userID)
		*sess = session{}
		return protocol.OK(), nil
	}

	return protocol.Fail(protocol.ErrInvalidRequest, "Unknown action"), nil
}
