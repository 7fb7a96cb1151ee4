// Package gateway implements the Developer Gateway: authenticated package
// upload, update, and removal for developer accounts, with transactional
// file staging in front of the Catalog Store.
package gateway

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

// Server accepts developer connections and serves the gateway protocol.
type Server struct {
	cfg  config.Gateway
	repo db.Repository

	listener net.Listener
	mu       sync.Mutex
}

// session is the per-connection developer state.
type session struct {
	loggedIn bool
	userID   string
	username string
}

// NewServer creates a gateway and ensures the upload directory exists.
func NewServer(cfg config.Gateway, repo db.Repository) (*Server, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir %s: %w", cfg.UploadDir, err)
	}
	return &Server{cfg: cfg, repo: repo}, nil
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

// Serve accepts connections on a prepared listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("developer gateway started", "address", ln.Addr())
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

	slog.Info("developer connected", "remote", conn.RemoteAddr())
	pc := protocol.NewConn(conn)
	sess := &session{}

	for {
		req, err := pc.ReadMessage()
		if err != nil {
			if err != io.EOF {
				slog.Warn("developer connection dropped", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		resp, err := s.process(ctx, pc, sess, req)
		if err != nil {
			slog.Warn("developer request aborted", "remote", conn.RemoteAddr(), "action", req.Str("action"), "err", err)
			return
		}
		if resp == nil {
			continue
		}
		if err := pc.WriteMessage(resp); err != nil {
			slog.Warn("gateway write failed", "remote", conn.RemoteAddr(), "err", err)
			return
		}
	}
}

// process dispatches one request. A returned error is a transport fault and
// tears the connection down; application failures travel in the response.
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
	case "my_games":
		return s.handleMyGames(ctx, sess), nil
	case "upload_game":
		return s.handleUploadGame(ctx, pc, sess, req)
	case "update_game":
		return s.handleUpdateGame(ctx, pc, sess, req)
	case "remove_game":
		return s.handleRemoveGame(ctx, sess, req), nil
	case "logout":
		*sess = session{}
		return protocol.OK(), nil
	}

	return protocol.Fail(protocol.ErrInvalidRequest, "Unknown action"), nil
}
